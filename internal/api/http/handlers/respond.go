package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/smokeking/smokeking-api/internal/api/dto"
	"github.com/smokeking/smokeking-api/internal/auth"
	apperrors "github.com/smokeking/smokeking-api/pkg/util/errorutil"
)

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// currentPrincipal is a guard for handlers mounted behind the resolver.
func currentPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(out)
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(name+" must be a positive integer", map[string]any{name: "positive"})
	}
	return id, nil
}
