// Package repotest provides an in-memory implementation of the repositories
// for service and handler tests.
package repotest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/smokeking/smokeking-api/internal/domain"
	"github.com/smokeking/smokeking-api/internal/repository"
)

// ErrInjected is returned by operations switched to fail.
var ErrInjected = errors.New("injected failure")

// state is the whole fake database; it is copied to emulate rollback.
type state struct {
	nextID        int64
	users         map[int64]domain.User
	plans         map[int64]domain.MembershipPlan
	payments      map[int64]domain.Payment
	memberships   map[int64]domain.Membership
	cancellations map[int64]domain.CancellationRequest
	appointments  map[int64]domain.Appointment
	messages      map[int64]domain.ChatMessage
	surveys       map[int64]domain.SmokingSurvey
}

func (s state) clone() state {
	c := s
	c.users = cloneMap(s.users)
	c.plans = cloneMap(s.plans)
	c.payments = cloneMap(s.payments)
	c.memberships = cloneMap(s.memberships)
	c.cancellations = cloneMap(s.cancellations)
	c.appointments = cloneMap(s.appointments)
	c.messages = cloneMap(s.messages)
	c.surveys = cloneMap(s.surveys)
	return c
}

func cloneMap[V any](m map[int64]V) map[int64]V {
	out := make(map[int64]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store implements repository.Transactor and every repository interface.
type Store struct {
	mu    sync.Mutex
	state state
	now   time.Time

	FailMembershipCreate bool
	FailUserUpdate       bool
	Commits              int
	Rollbacks            int
}

// NewStore returns an empty store whose clock is fixed at now.
func NewStore(now time.Time) *Store {
	return &Store{
		now: now,
		state: state{
			users:         map[int64]domain.User{},
			plans:         map[int64]domain.MembershipPlan{},
			payments:      map[int64]domain.Payment{},
			memberships:   map[int64]domain.Membership{},
			cancellations: map[int64]domain.CancellationRequest{},
			appointments:  map[int64]domain.Appointment{},
			messages:      map[int64]domain.ChatMessage{},
			surveys:       map[int64]domain.SmokingSurvey{},
		},
	}
}

func (m *Store) id() int64 {
	m.state.nextID++
	return m.state.nextID
}

// Repos binds every repository to the store.
func (m *Store) Repos() repository.Repositories {
	return repository.Repositories{
		Users:         &memUsers{m},
		Plans:         &memPlans{m},
		Payments:      &memPayments{m},
		Memberships:   &memMemberships{m},
		Cancellations: &memCancellations{m},
		Appointments:  &memAppointments{m},
		Messages:      &memMessages{m},
		Surveys:       &memSurveys{m},
	}
}

// WithTx restores the previous state when fn fails.
func (m *Store) WithTx(_ context.Context, fn func(repository.Repositories) error) error {
	m.mu.Lock()
	snapshot := m.state.clone()
	m.mu.Unlock()

	if err := fn(m.Repos()); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.Rollbacks++
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.Commits++
	m.mu.Unlock()
	return nil
}

// AddUser inserts u as is, assigning an ID when it has none.
func (m *Store) AddUser(u domain.User) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.id()
	} else if u.ID > m.state.nextID {
		m.state.nextID = u.ID
	}
	m.state.users[u.ID] = u
	return u
}

// User returns a copy of the stored user.
func (m *Store) User(id int64) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.users[id]
}

// AddPlan inserts a plan.
func (m *Store) AddPlan(p domain.MembershipPlan) domain.MembershipPlan {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	m.state.plans[p.ID] = p
	return p
}

// Payments returns a snapshot of stored payments keyed by ID.
func (m *Store) Payments() map[int64]domain.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneMap(m.state.payments)
}

// Memberships returns a snapshot of stored memberships keyed by ID.
func (m *Store) Memberships() map[int64]domain.Membership {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneMap(m.state.memberships)
}

// Messages returns a snapshot of stored chat messages keyed by ID.
func (m *Store) Messages() map[int64]domain.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneMap(m.state.messages)
}

type memUsers struct{ m *Store }

func (r *memUsers) Create(_ context.Context, u *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.state.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return errors.New("duplicate email")
		}
	}
	u.ID = r.m.id()
	u.CreatedAt, u.UpdatedAt = r.m.now, r.m.now
	r.m.state.users[u.ID] = *u
	return nil
}

func (r *memUsers) Update(_ context.Context, u *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.FailUserUpdate {
		return ErrInjected
	}
	if _, ok := r.m.state.users[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.m.state.users[u.ID] = *u
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.state.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.state.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUsers) List(_ context.Context, f repository.UserFilter) ([]domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.User
	for _, u := range r.m.state.users {
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.ActiveOnly && !u.IsActive {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

type memPlans struct{ m *Store }

func (r *memPlans) GetByID(_ context.Context, id int64) (*domain.MembershipPlan, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.state.plans[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (r *memPlans) ListActive(_ context.Context) ([]domain.MembershipPlan, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.MembershipPlan
	for _, p := range r.m.state.plans {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

type memPayments struct{ m *Store }

func (r *memPayments) Create(_ context.Context, p *domain.Payment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p.ID = r.m.id()
	r.m.state.payments[p.ID] = *p
	return nil
}

func (r *memPayments) GetByID(_ context.Context, id int64) (*domain.Payment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.state.payments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (r *memPayments) UpdateStatus(_ context.Context, id int64, status domain.PaymentStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.state.payments[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Status = status
	r.m.state.payments[id] = p
	return nil
}

type memMemberships struct{ m *Store }

func (r *memMemberships) Create(_ context.Context, ms *domain.Membership) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.FailMembershipCreate {
		return ErrInjected
	}
	if ms.Status == domain.MembershipStatusActive {
		for _, existing := range r.m.state.memberships {
			if existing.UserID == ms.UserID && existing.Status == domain.MembershipStatusActive {
				return &pgconn.PgError{Code: "23505", ConstraintName: "memberships_one_active_per_user_idx"}
			}
		}
	}
	ms.ID = r.m.id()
	r.m.state.memberships[ms.ID] = *ms
	return nil
}

func (r *memMemberships) GetByID(_ context.Context, id int64) (*domain.Membership, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ms, ok := r.m.state.memberships[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ms, nil
}

func (r *memMemberships) GetActiveByUser(_ context.Context, userID int64) (*domain.Membership, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, ms := range r.m.state.memberships {
		if ms.UserID == userID && ms.Status == domain.MembershipStatusActive && ms.EndDate.After(r.m.now) {
			found := ms
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memMemberships) UpdateStatus(_ context.Context, id int64, status domain.MembershipStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ms, ok := r.m.state.memberships[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ms.Status = status
	r.m.state.memberships[id] = ms
	return nil
}

type memCancellations struct{ m *Store }

func (r *memCancellations) Create(_ context.Context, c *domain.CancellationRequest) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c.ID = r.m.id()
	c.CreatedAt = r.m.now
	r.m.state.cancellations[c.ID] = *c
	return nil
}

func (r *memCancellations) GetByID(_ context.Context, id int64) (*domain.CancellationRequest, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.state.cancellations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (r *memCancellations) GetPendingByUser(_ context.Context, userID int64) (*domain.CancellationRequest, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.state.cancellations {
		if c.UserID == userID && c.Status == domain.CancellationStatusPending {
			found := c
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memCancellations) List(_ context.Context, status *domain.CancellationStatus) ([]domain.CancellationRequest, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.CancellationRequest
	for _, c := range r.m.state.cancellations {
		if status == nil || c.Status == *status {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memCancellations) Review(_ context.Context, id int64, status domain.CancellationStatus, reviewerID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.state.cancellations[id]
	if !ok || c.Status != domain.CancellationStatusPending {
		return pgx.ErrNoRows
	}
	c.Status = status
	c.ReviewedBy = &reviewerID
	now := r.m.now
	c.ReviewedAt = &now
	r.m.state.cancellations[id] = c
	return nil
}

type memAppointments struct{ m *Store }

func (r *memAppointments) Create(_ context.Context, a *domain.Appointment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a.ID = r.m.id()
	r.m.state.appointments[a.ID] = *a
	return nil
}

func (r *memAppointments) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.state.appointments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (r *memAppointments) ListByMember(_ context.Context, memberID int64) ([]domain.Appointment, error) {
	return r.filter(func(a domain.Appointment) bool { return a.MemberID == memberID }), nil
}

func (r *memAppointments) ListByCoach(_ context.Context, coachID int64) ([]domain.Appointment, error) {
	return r.filter(func(a domain.Appointment) bool { return a.CoachID == coachID }), nil
}

func (r *memAppointments) filter(keep func(domain.Appointment) bool) []domain.Appointment {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.Appointment
	for _, a := range r.m.state.appointments {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

func (r *memAppointments) UpdateStatus(_ context.Context, id int64, from, to domain.AppointmentStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.state.appointments[id]
	if !ok || a.Status != from {
		return pgx.ErrNoRows
	}
	a.Status = to
	r.m.state.appointments[id] = a
	return nil
}

func (r *memAppointments) ListMembersOfCoach(_ context.Context, coachID int64) ([]domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	seen := map[int64]bool{}
	var out []domain.User
	for _, a := range r.m.state.appointments {
		if a.CoachID == coachID && !seen[a.MemberID] {
			seen[a.MemberID] = true
			out = append(out, r.m.state.users[a.MemberID])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memMessages struct{ m *Store }

func (r *memMessages) Create(_ context.Context, msg *domain.ChatMessage) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	msg.ID = r.m.id()
	msg.CreatedAt = r.m.now
	r.m.state.messages[msg.ID] = *msg
	return nil
}

func (r *memMessages) ListConversation(_ context.Context, userID, partnerID int64) ([]domain.ChatMessage, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.ChatMessage
	for _, msg := range r.m.state.messages {
		if (msg.SenderID == userID && msg.ReceiverID == partnerID) || (msg.SenderID == partnerID && msg.ReceiverID == userID) {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memMessages) MarkRead(_ context.Context, senderID, receiverID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, msg := range r.m.state.messages {
		if msg.SenderID == senderID && msg.ReceiverID == receiverID {
			msg.IsRead = true
			r.m.state.messages[id] = msg
		}
	}
	return nil
}

type memSurveys struct{ m *Store }

func (r *memSurveys) Upsert(_ context.Context, s *domain.SmokingSurvey) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if existing, ok := r.m.state.surveys[s.UserID]; ok {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
	} else {
		s.ID = r.m.id()
		s.CreatedAt = r.m.now
	}
	s.UpdatedAt = r.m.now
	r.m.state.surveys[s.UserID] = *s
	return nil
}

func (r *memSurveys) GetByUser(_ context.Context, userID int64) (*domain.SmokingSurvey, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.state.surveys[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}
