package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/smokeking/smokeking-api/internal/domain"
)

// CancellationRepository manages membership cancellation requests.
type CancellationRepository interface {
	Create(ctx context.Context, req *domain.CancellationRequest) error
	GetByID(ctx context.Context, id int64) (*domain.CancellationRequest, error)
	GetPendingByUser(ctx context.Context, userID int64) (*domain.CancellationRequest, error)
	List(ctx context.Context, status *domain.CancellationStatus) ([]domain.CancellationRequest, error)
	Review(ctx context.Context, id int64, status domain.CancellationStatus, reviewerID int64) error
}

type cancellationRepository struct {
	db DBTX
}

// NewCancellationRepository builds repository.
func NewCancellationRepository(db DBTX) CancellationRepository {
	return &cancellationRepository{db: db}
}

const cancellationColumns = `id, user_id, membership_id, reason, bank_name, account_number, account_holder, status, reviewed_by, reviewed_at, created_at`

func (r *cancellationRepository) Create(ctx context.Context, req *domain.CancellationRequest) error {
	const query = `
        INSERT INTO cancellation_requests (user_id, membership_id, reason, bank_name, account_number, account_holder, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		req.UserID,
		req.MembershipID,
		req.Reason,
		req.BankName,
		req.AccountNumber,
		req.AccountHolder,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt)
}

func (r *cancellationRepository) GetByID(ctx context.Context, id int64) (*domain.CancellationRequest, error) {
	query := `SELECT ` + cancellationColumns + ` FROM cancellation_requests WHERE id=$1`
	return scanCancellation(r.db.QueryRow(ctx, query, id))
}

func (r *cancellationRepository) GetPendingByUser(ctx context.Context, userID int64) (*domain.CancellationRequest, error) {
	query := `SELECT ` + cancellationColumns + ` FROM cancellation_requests
        WHERE user_id=$1 AND status=$2 ORDER BY created_at DESC LIMIT 1`
	return scanCancellation(r.db.QueryRow(ctx, query, userID, domain.CancellationStatusPending))
}

func (r *cancellationRepository) List(ctx context.Context, status *domain.CancellationStatus) ([]domain.CancellationRequest, error) {
	query := `SELECT ` + cancellationColumns + ` FROM cancellation_requests`
	var args []any
	if status != nil {
		query += ` WHERE status=$1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CancellationRequest
	for rows.Next() {
		req, err := scanCancellation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

// Review moves a pending request to status; already reviewed requests do not match.
func (r *cancellationRepository) Review(ctx context.Context, id int64, status domain.CancellationStatus, reviewerID int64) error {
	const query = `
        UPDATE cancellation_requests SET status=$1, reviewed_by=$2, reviewed_at=NOW()
        WHERE id=$3 AND status=$4`
	return execOne(ctx, r.db, query, status, reviewerID, id, domain.CancellationStatusPending)
}

func scanCancellation(row pgx.Row) (*domain.CancellationRequest, error) {
	var req domain.CancellationRequest
	if err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.MembershipID,
		&req.Reason,
		&req.BankName,
		&req.AccountNumber,
		&req.AccountHolder,
		&req.Status,
		&req.ReviewedBy,
		&req.ReviewedAt,
		&req.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}
