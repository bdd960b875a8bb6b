package repository

import (
	"context"

	"github.com/smokeking/smokeking-api/internal/domain"
)

// SurveyRepository stores one smoking survey per user.
type SurveyRepository interface {
	Upsert(ctx context.Context, survey *domain.SmokingSurvey) error
	GetByUser(ctx context.Context, userID int64) (*domain.SmokingSurvey, error)
}

type surveyRepository struct {
	db DBTX
}

// NewSurveyRepository builds repository.
func NewSurveyRepository(db DBTX) SurveyRepository {
	return &surveyRepository{db: db}
}

func (r *surveyRepository) Upsert(ctx context.Context, s *domain.SmokingSurvey) error {
	const query = `
        INSERT INTO smoking_surveys (user_id, cigarettes_per_day, price_per_pack, smoking_years, quit_attempts, motivation)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (user_id) DO UPDATE SET
            cigarettes_per_day=EXCLUDED.cigarettes_per_day,
            price_per_pack=EXCLUDED.price_per_pack,
            smoking_years=EXCLUDED.smoking_years,
            quit_attempts=EXCLUDED.quit_attempts,
            motivation=EXCLUDED.motivation,
            updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		s.UserID,
		s.CigarettesPerDay,
		s.PricePerPack,
		s.SmokingYears,
		s.QuitAttempts,
		s.Motivation,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *surveyRepository) GetByUser(ctx context.Context, userID int64) (*domain.SmokingSurvey, error) {
	const query = `
        SELECT id, user_id, cigarettes_per_day, price_per_pack, smoking_years, quit_attempts, motivation, created_at, updated_at
        FROM smoking_surveys WHERE user_id=$1`
	var s domain.SmokingSurvey
	if err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.ID,
		&s.UserID,
		&s.CigarettesPerDay,
		&s.PricePerPack,
		&s.SmokingYears,
		&s.QuitAttempts,
		&s.Motivation,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
