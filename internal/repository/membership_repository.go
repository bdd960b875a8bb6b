package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/smokeking/smokeking-api/internal/domain"
)

// PlanRepository reads membership plans.
type PlanRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.MembershipPlan, error)
	ListActive(ctx context.Context) ([]domain.MembershipPlan, error)
}

// PaymentRepository records payment bookkeeping.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus) error
}

// MembershipRepository manages memberships.
type MembershipRepository interface {
	Create(ctx context.Context, membership *domain.Membership) error
	GetByID(ctx context.Context, id int64) (*domain.Membership, error)
	GetActiveByUser(ctx context.Context, userID int64) (*domain.Membership, error)
	UpdateStatus(ctx context.Context, id int64, status domain.MembershipStatus) error
}

type planRepository struct {
	db DBTX
}

// NewPlanRepository builds repository.
func NewPlanRepository(db DBTX) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) GetByID(ctx context.Context, id int64) (*domain.MembershipPlan, error) {
	const query = `
        SELECT id, name, description, price, duration_days, is_active, created_at
        FROM membership_plans WHERE id=$1`
	return scanPlan(r.db.QueryRow(ctx, query, id))
}

func (r *planRepository) ListActive(ctx context.Context) ([]domain.MembershipPlan, error) {
	const query = `
        SELECT id, name, description, price, duration_days, is_active, created_at
        FROM membership_plans WHERE is_active=TRUE ORDER BY price ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MembershipPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *plan)
	}
	return result, rows.Err()
}

func scanPlan(row pgx.Row) (*domain.MembershipPlan, error) {
	var plan domain.MembershipPlan
	if err := row.Scan(
		&plan.ID,
		&plan.Name,
		&plan.Description,
		&plan.Price,
		&plan.DurationDays,
		&plan.IsActive,
		&plan.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &plan, nil
}

type paymentRepository struct {
	db DBTX
}

// NewPaymentRepository builds repository.
func NewPaymentRepository(db DBTX) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	const query = `
        INSERT INTO payments (user_id, plan_id, amount, method, transaction_ref, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		payment.UserID,
		payment.PlanID,
		payment.Amount,
		payment.Method,
		payment.TransactionRef,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	const query = `
        SELECT id, user_id, plan_id, amount, method, transaction_ref, status, created_at, updated_at
        FROM payments WHERE id=$1`
	var p domain.Payment
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.UserID,
		&p.PlanID,
		&p.Amount,
		&p.Method,
		&p.TransactionRef,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	const query = `UPDATE payments SET status=$1, updated_at=NOW() WHERE id=$2`
	return execOne(ctx, r.db, query, status, id)
}

type membershipRepository struct {
	db DBTX
}

// NewMembershipRepository builds repository.
func NewMembershipRepository(db DBTX) MembershipRepository {
	return &membershipRepository{db: db}
}

const membershipColumns = `id, user_id, plan_id, payment_id, start_date, end_date, status, created_at, updated_at`

func (r *membershipRepository) Create(ctx context.Context, m *domain.Membership) error {
	const query = `
        INSERT INTO memberships (user_id, plan_id, payment_id, start_date, end_date, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		m.UserID,
		m.PlanID,
		m.PaymentID,
		m.StartDate,
		m.EndDate,
		m.Status,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (r *membershipRepository) GetByID(ctx context.Context, id int64) (*domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id=$1`
	return scanMembership(r.db.QueryRow(ctx, query, id))
}

func (r *membershipRepository) GetActiveByUser(ctx context.Context, userID int64) (*domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships
        WHERE user_id=$1 AND status=$2 AND end_date > NOW()
        ORDER BY end_date DESC LIMIT 1`
	return scanMembership(r.db.QueryRow(ctx, query, userID, domain.MembershipStatusActive))
}

func (r *membershipRepository) UpdateStatus(ctx context.Context, id int64, status domain.MembershipStatus) error {
	const query = `UPDATE memberships SET status=$1, updated_at=NOW() WHERE id=$2`
	return execOne(ctx, r.db, query, status, id)
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var m domain.Membership
	if err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.PlanID,
		&m.PaymentID,
		&m.StartDate,
		&m.EndDate,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// execOne runs an update and reports pgx.ErrNoRows when nothing matched.
func execOne(ctx context.Context, db DBTX, query string, args ...any) error {
	cmd, err := db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
