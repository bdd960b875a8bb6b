package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/smokeking/smokeking-api/internal/api/dto"
	"github.com/smokeking/smokeking-api/internal/domain"
	"github.com/smokeking/smokeking-api/internal/service"
)

// CoachingHandler exposes appointments, coach listings and chat.
type CoachingHandler struct {
	coaching *service.CoachingService
}

// NewCoachingHandler constructs handler.
func NewCoachingHandler(coachingService *service.CoachingService) *CoachingHandler {
	return &CoachingHandler{coaching: coachingService}
}

// Coaches handles GET /api/coaches.
func (h *CoachingHandler) Coaches(c *fiber.Ctx) error {
	coaches, err := h.coaching.ListCoaches(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ok", dto.NewUserResponses(coaches))
}

// Book handles POST /api/appointments.
func (h *CoachingHandler) Book(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateAppointmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	appt, err := h.coaching.Book(c.UserContext(), principal.UserID(), service.BookingInput{
		CoachID:     req.CoachID,
		ScheduledAt: req.ScheduledAt,
		Note:        req.Note,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "appointment booked", dto.NewAppointmentResponse(appt))
}

// ListAppointments handles GET /api/appointments.
func (h *CoachingHandler) ListAppointments(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	appts, err := h.coaching.ListAppointments(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ok", dto.NewAppointmentResponses(appts))
}

// UpdateAppointmentStatus handles PATCH /api/appointments/:id/status.
func (h *CoachingHandler) UpdateAppointmentStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateAppointmentStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	appt, err := h.coaching.UpdateStatus(c.UserContext(), principal.User, id, domain.AppointmentStatus(req.Status))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "appointment updated", dto.NewAppointmentResponse(appt))
}

// CoachMembers handles GET /api/coach/members.
func (h *CoachingHandler) CoachMembers(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	members, err := h.coaching.ListMembers(c.UserContext(), principal.UserID())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ok", dto.NewUserResponses(members))
}

// SendMessage handles POST /api/chat/messages.
func (h *CoachingHandler) SendMessage(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	msg, err := h.coaching.SendMessage(c.UserContext(), principal.User, req.ReceiverID, req.Content)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "message sent", dto.NewMessageResponse(msg))
}

// Conversation handles GET /api/chat/messages/:partnerId.
func (h *CoachingHandler) Conversation(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	partnerID, err := paramID(c, "partnerId")
	if err != nil {
		return err
	}

	msgs, err := h.coaching.Conversation(c.UserContext(), principal.UserID(), partnerID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ok", dto.NewMessageResponses(msgs))
}
