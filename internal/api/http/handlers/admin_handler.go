package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/smokeking/smokeking-api/internal/api/dto"
	"github.com/smokeking/smokeking-api/internal/domain"
	"github.com/smokeking/smokeking-api/internal/service"
	apperrors "github.com/smokeking/smokeking-api/pkg/util/errorutil"
)

// AdminHandler exposes user management.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: adminService}
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	var role *domain.Role
	if raw := c.Query("role"); raw != "" {
		parsed, err := domain.ParseRole(raw)
		if err != nil {
			return apperrors.NewValidationError("unknown role", map[string]any{"role": raw})
		}
		role = &parsed
	}

	users, err := h.admin.ListUsers(c.UserContext(), role, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ok", dto.NewUserResponses(users))
}

// UpdateRole handles PATCH /api/admin/users/:id/role.
func (h *AdminHandler) UpdateRole(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.admin.UpdateRole(c.UserContext(), principal.UserID(), id, domain.Role(req.Role))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "role updated", dto.NewUserResponse(user))
}

// UpdateStatus handles PATCH /api/admin/users/:id/status.
func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.admin.SetActive(c.UserContext(), principal.UserID(), id, *req.IsActive)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "status updated", dto.NewUserResponse(user))
}
