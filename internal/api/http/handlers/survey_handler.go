package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/smokeking/smokeking-api/internal/api/dto"
	"github.com/smokeking/smokeking-api/internal/service"
)

// SurveyHandler exposes the smoking intake survey.
type SurveyHandler struct {
	surveys *service.SurveyService
}

// NewSurveyHandler constructs handler.
func NewSurveyHandler(surveyService *service.SurveyService) *SurveyHandler {
	return &SurveyHandler{surveys: surveyService}
}

// Submit handles POST /api/survey.
func (h *SurveyHandler) Submit(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SurveyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	survey, err := h.surveys.Submit(c.UserContext(), principal.UserID(), service.SurveyInput{
		CigarettesPerDay: *req.CigarettesPerDay,
		PricePerPack:     *req.PricePerPack,
		SmokingYears:     *req.SmokingYears,
		QuitAttempts:     *req.QuitAttempts,
		Motivation:       req.Motivation,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "survey saved", dto.NewSurveyResponse(survey))
}

// Mine handles GET /api/survey/me.
func (h *SurveyHandler) Mine(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	survey, err := h.surveys.Get(c.UserContext(), principal.UserID())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ok", dto.NewSurveyResponse(survey))
}
