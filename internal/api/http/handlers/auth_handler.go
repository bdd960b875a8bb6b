package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/smokeking/smokeking-api/internal/api/dto"
	"github.com/smokeking/smokeking-api/internal/service"
)

// AuthHandler exposes registration, login and self-service account endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

func sessionResponse(session *service.Session) fiber.Map {
	return fiber.Map{
		"user": dto.NewUserResponse(session.User),
		"auth": dto.AuthResponse{Token: session.Token, ExpiresAt: session.ExpiresAt},
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "registered", sessionResponse(session))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "logged in", sessionResponse(session))
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ok", dto.NewUserResponse(principal.User))
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.auth.ChangePassword(c.UserContext(), principal.UserID(), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "password updated", nil)
}

// UpdateProfile handles PUT /api/users/profile.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.auth.UpdateProfile(c.UserContext(), principal.UserID(), service.ProfileInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "profile updated", dto.NewUserResponse(user))
}
