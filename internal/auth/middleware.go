package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/smokeking/smokeking-api/internal/domain"
	apperrors "github.com/smokeking/smokeking-api/pkg/util/errorutil"
)

const (
	principalKey = "auth_principal"
	bearerPrefix = "Bearer "
)

// Principal represents the authenticated caller for one request.
type Principal struct {
	// Token is what the caller presented; it identifies but never authorizes.
	Token domain.Identity
	// User is the record loaded from storage for this request.
	User *domain.User
}

// UserID returns the authenticated user's id.
func (p *Principal) UserID() int64 {
	return p.User.ID
}

// Role returns the current stored role, not the one embedded in the token.
func (p *Principal) Role() domain.Role {
	return p.User.Role
}

// UserLoader is the single read the resolver performs per request.
type UserLoader interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// TokenVerifier decodes session tokens.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens TokenVerifier
	users  UserLoader
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens TokenVerifier, users UserLoader) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes. The token is fully
// verified before storage is consulted, and the user is reloaded on every
// request so deactivation takes effect immediately.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	tokenStr, found := strings.CutPrefix(authHeader, bearerPrefix)
	tokenStr = strings.TrimSpace(tokenStr)
	if !found || tokenStr == "" {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	identity, err := m.tokens.Verify(tokenStr)
	if err != nil {
		return apperrors.NewUnauthorized("invalid or expired token")
	}

	user, err := m.users.GetByID(c.UserContext(), identity.SubjectID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewUnauthorized("account not found or inactive")
		}
		return apperrors.NewInternalError(err)
	}
	if !user.IsActive {
		return apperrors.NewUnauthorized("account not found or inactive")
	}

	c.Locals(principalKey, &Principal{Token: identity, User: user})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal.User != nil
}
