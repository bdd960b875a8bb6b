package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smokeking/smokeking-api/internal/domain"
	apperrors "github.com/smokeking/smokeking-api/pkg/util/errorutil"
)

// RoleSet is an explicit set of permitted roles.
type RoleSet map[domain.Role]struct{}

// NewRoleSet builds a set from roles. Unknown roles panic because they can
// only come from a programming error at route registration.
func NewRoleSet(roles ...domain.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		if !role.Valid() {
			panic("auth: unknown role " + string(role))
		}
		set[role] = struct{}{}
	}
	return set
}

// Allows reports exact membership. An empty set allows nobody.
func (s RoleSet) Allows(role domain.Role) bool {
	_, ok := s[role]
	return ok
}

// Common route requirements.
var (
	AnyRole       = NewRoleSet(domain.RoleGuest, domain.RoleMember, domain.RoleCoach, domain.RoleAdmin)
	GuestOrMember = NewRoleSet(domain.RoleGuest, domain.RoleMember)
	MemberOrCoach = NewRoleSet(domain.RoleMember, domain.RoleCoach)
	MemberOnly    = NewRoleSet(domain.RoleMember)
	CoachOnly     = NewRoleSet(domain.RoleCoach)
	AdminOnly     = NewRoleSet(domain.RoleAdmin)
)

// RequireRoles admits only principals whose stored role is in allowed.
// It must run after AuthMiddleware.Handle.
func RequireRoles(allowed RoleSet) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !allowed.Allows(principal.Role()) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
