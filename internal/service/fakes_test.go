package service

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/smokeking/smokeking-api/internal/domain"
	"github.com/smokeking/smokeking-api/internal/events"
	"github.com/smokeking/smokeking-api/internal/repository"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

// wrappingTx hands fn a rewritten set of repositories so a test can stand in
// for a concurrent writer between a read and the following write.
type wrappingTx struct {
	tx   repository.Transactor
	wrap func(repository.Repositories) repository.Repositories
}

func (w wrappingTx) WithTx(ctx context.Context, fn func(repository.Repositories) error) error {
	return w.tx.WithTx(ctx, func(repos repository.Repositories) error {
		return fn(w.wrap(repos))
	})
}

// staleAppointments serves an old copy of one appointment.
type staleAppointments struct {
	repository.AppointmentRepository
	seen domain.Appointment
}

func (s staleAppointments) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	if id != s.seen.ID {
		return nil, pgx.ErrNoRows
	}
	a := s.seen
	return &a, nil
}

// staleCancellations serves an old copy of one cancellation request.
type staleCancellations struct {
	repository.CancellationRepository
	seen domain.CancellationRequest
}

func (s staleCancellations) GetByID(_ context.Context, id int64) (*domain.CancellationRequest, error) {
	if id != s.seen.ID {
		return nil, pgx.ErrNoRows
	}
	r := s.seen
	return &r, nil
}

// blindMemberships never sees an active membership.
type blindMemberships struct {
	repository.MembershipRepository
}

func (blindMemberships) GetActiveByUser(context.Context, int64) (*domain.Membership, error) {
	return nil, pgx.ErrNoRows
}
