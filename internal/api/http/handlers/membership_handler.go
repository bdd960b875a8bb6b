package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/smokeking/smokeking-api/internal/api/dto"
	"github.com/smokeking/smokeking-api/internal/domain"
	"github.com/smokeking/smokeking-api/internal/service"
	apperrors "github.com/smokeking/smokeking-api/pkg/util/errorutil"
)

// MembershipHandler exposes plan purchase and cancellation endpoints.
type MembershipHandler struct {
	memberships *service.MembershipService
}

// NewMembershipHandler constructs handler.
func NewMembershipHandler(membershipService *service.MembershipService) *MembershipHandler {
	return &MembershipHandler{memberships: membershipService}
}

// Plans handles GET /api/membership/plans.
func (h *MembershipHandler) Plans(c *fiber.Ctx) error {
	plans, err := h.memberships.ListPlans(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ok", dto.NewPlanResponses(plans))
}

// Purchase handles POST /api/membership/purchase.
func (h *MembershipHandler) Purchase(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PurchaseRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.memberships.Purchase(c.UserContext(), principal.UserID(), service.PurchaseInput{
		PlanID:        req.PlanID,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "membership purchased",
		dto.NewPurchaseResponse(result.Membership, result.Payment, result.Plan, result.Role))
}

// Mine handles GET /api/membership/me.
func (h *MembershipHandler) Mine(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	membership, err := h.memberships.CurrentMembership(c.UserContext(), principal.UserID())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ok", dto.NewMembershipResponse(membership))
}

// Cancel handles POST /api/membership/cancel.
func (h *MembershipHandler) Cancel(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CancelMembershipRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	cancellation, err := h.memberships.RequestCancellation(c.UserContext(), principal.UserID(), service.CancellationInput{
		Reason:        req.Reason,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountHolder: req.AccountHolder,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "cancellation requested", dto.NewCancellationResponse(cancellation))
}

// ListCancellations handles GET /api/admin/cancellations.
func (h *MembershipHandler) ListCancellations(c *fiber.Ctx) error {
	var status *domain.CancellationStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.CancellationStatus(raw)
		switch s {
		case domain.CancellationStatusPending, domain.CancellationStatusApproved, domain.CancellationStatusRejected:
			status = &s
		default:
			return apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
		}
	}

	reqs, err := h.memberships.ListCancellations(c.UserContext(), status)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ok", dto.NewCancellationResponses(reqs))
}

// Approve handles POST /api/admin/cancellations/:id/approve.
func (h *MembershipHandler) Approve(c *fiber.Ctx) error {
	return h.review(c, h.memberships.ApproveCancellation, "cancellation approved")
}

// Reject handles POST /api/admin/cancellations/:id/reject.
func (h *MembershipHandler) Reject(c *fiber.Ctx) error {
	return h.review(c, h.memberships.RejectCancellation, "cancellation rejected")
}

type reviewFunc func(ctx context.Context, adminID, requestID int64) (*domain.CancellationRequest, error)

func (h *MembershipHandler) review(c *fiber.Ctx, fn reviewFunc, message string) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req, err := fn(c.UserContext(), principal.UserID(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, message, dto.NewCancellationResponse(req))
}
