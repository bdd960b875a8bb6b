package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every repository bound to the same DBTX.
type Repositories struct {
	Users         UserRepository
	Plans         PlanRepository
	Payments      PaymentRepository
	Memberships   MembershipRepository
	Cancellations CancellationRepository
	Appointments  AppointmentRepository
	Messages      MessageRepository
	Surveys       SurveyRepository
}

// New binds all repositories to db.
func New(db DBTX) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		Plans:         NewPlanRepository(db),
		Payments:      NewPaymentRepository(db),
		Memberships:   NewMembershipRepository(db),
		Cancellations: NewCancellationRepository(db),
		Appointments:  NewAppointmentRepository(db),
		Messages:      NewMessageRepository(db),
		Surveys:       NewSurveyRepository(db),
	}
}

// Transactor runs fn against repositories sharing one transaction. The
// transaction is committed only when fn returns nil.
type Transactor interface {
	WithTx(ctx context.Context, fn func(Repositories) error) error
}

type pgTransactor struct {
	pool *pgxpool.Pool
}

// NewTransactor returns a Postgres-backed Transactor.
func NewTransactor(pool *pgxpool.Pool) Transactor {
	return &pgTransactor{pool: pool}
}

func (t *pgTransactor) WithTx(ctx context.Context, fn func(Repositories) error) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("repository: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(New(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: commit tx: %w", err)
	}
	return nil
}
