package service

import (
	"context"
	"strings"

	"github.com/smokeking/smokeking-api/internal/domain"
	"github.com/smokeking/smokeking-api/internal/repository"
	apperrors "github.com/smokeking/smokeking-api/pkg/util/errorutil"
)

// SurveyInput holds intake answers.
type SurveyInput struct {
	CigarettesPerDay int
	PricePerPack     int64
	SmokingYears     int
	QuitAttempts     int
	Motivation       string
}

// SurveyService stores the smoking intake survey.
type SurveyService struct {
	surveys repository.SurveyRepository
}

// NewSurveyService constructs the service.
func NewSurveyService(surveys repository.SurveyRepository) *SurveyService {
	return &SurveyService{surveys: surveys}
}

// Submit creates or replaces the caller's survey.
func (s *SurveyService) Submit(ctx context.Context, userID int64, input SurveyInput) (*domain.SmokingSurvey, error) {
	survey := &domain.SmokingSurvey{
		UserID:           userID,
		CigarettesPerDay: input.CigarettesPerDay,
		PricePerPack:     input.PricePerPack,
		SmokingYears:     input.SmokingYears,
		QuitAttempts:     input.QuitAttempts,
		Motivation:       strings.TrimSpace(input.Motivation),
	}
	if err := s.surveys.Upsert(ctx, survey); err != nil {
		return nil, err
	}
	return survey, nil
}

// Get returns the caller's survey.
func (s *SurveyService) Get(ctx context.Context, userID int64) (*domain.SmokingSurvey, error) {
	survey, err := s.surveys.GetByUser(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("survey")
		}
		return nil, err
	}
	return survey, nil
}
