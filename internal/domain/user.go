package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles. Comparison is exact and
// case-sensitive; there is no hierarchy between roles.
type Role string

const (
	RoleGuest  Role = "guest"
	RoleMember Role = "member"
	RoleCoach  Role = "coach"
	RoleAdmin  Role = "admin"
)

// AllRoles lists every role, in privilege-neutral order.
var AllRoles = []Role{RoleGuest, RoleMember, RoleCoach, RoleAdmin}

// ParseRole converts a raw string into a Role.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleGuest, RoleMember, RoleCoach, RoleAdmin:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// User is an account of any role.
type User struct {
	ID            int64
	Name          string
	Email         string
	PasswordHash  string
	Phone         string
	Address       string
	Role          Role
	IsActive      bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
