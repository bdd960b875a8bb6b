package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/smokeking/smokeking-api/internal/domain"
)

// AppointmentRepository manages coaching appointments.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *domain.Appointment) error
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	ListByMember(ctx context.Context, memberID int64) ([]domain.Appointment, error)
	ListByCoach(ctx context.Context, coachID int64) ([]domain.Appointment, error)
	// UpdateStatus moves id from one status to another and returns
	// pgx.ErrNoRows when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int64, from, to domain.AppointmentStatus) error
	ListMembersOfCoach(ctx context.Context, coachID int64) ([]domain.User, error)
}

type appointmentRepository struct {
	db DBTX
}

// NewAppointmentRepository builds repository.
func NewAppointmentRepository(db DBTX) AppointmentRepository {
	return &appointmentRepository{db: db}
}

const appointmentColumns = `id, member_id, coach_id, scheduled_at, note, status, created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, appt *domain.Appointment) error {
	const query = `
        INSERT INTO appointments (member_id, coach_id, scheduled_at, note, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		appt.MemberID,
		appt.CoachID,
		appt.ScheduledAt,
		appt.Note,
		appt.Status,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
}

func (r *appointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id=$1`
	return scanAppointment(r.db.QueryRow(ctx, query, id))
}

func (r *appointmentRepository) ListByMember(ctx context.Context, memberID int64) ([]domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE member_id=$1 ORDER BY scheduled_at ASC`
	return r.list(ctx, query, memberID)
}

func (r *appointmentRepository) ListByCoach(ctx context.Context, coachID int64) ([]domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE coach_id=$1 ORDER BY scheduled_at ASC`
	return r.list(ctx, query, coachID)
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.AppointmentStatus) error {
	const query = `UPDATE appointments SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	return execOne(ctx, r.db, query, to, id, from)
}

func (r *appointmentRepository) ListMembersOfCoach(ctx context.Context, coachID int64) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
        WHERE id IN (SELECT DISTINCT member_id FROM appointments WHERE coach_id=$1)
        ORDER BY name ASC`
	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func (r *appointmentRepository) list(ctx context.Context, query string, args ...any) ([]domain.Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *appt)
	}
	return result, rows.Err()
}

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var appt domain.Appointment
	if err := row.Scan(
		&appt.ID,
		&appt.MemberID,
		&appt.CoachID,
		&appt.ScheduledAt,
		&appt.Note,
		&appt.Status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &appt, nil
}
