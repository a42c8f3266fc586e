package identity

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleOwner  Role = "Owner"
	RoleTenant Role = "Tenant"

	// RoleSystem is reserved for background jobs and cannot be registered.
	RoleSystem Role = "System"
)

// ParseRole accepts role names case-insensitively.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "admin":
		return RoleAdmin, true
	case "owner":
		return RoleOwner, true
	case "tenant":
		return RoleTenant, true
	default:
		return "", false
	}
}

func (r Role) String() string {
	return string(r)
}

// Subject is the policy subject for the role.
func (r Role) Subject() string {
	return "role:" + strings.ToLower(string(r))
}

// CallerIdentity is the authenticated principal of a single operation.
// The zero value is the anonymous caller.
type CallerIdentity struct {
	UserID snowflake.ID
	Email  string
	Role   Role
}

// System is the caller used by scheduled jobs.
func System() CallerIdentity {
	return CallerIdentity{Role: RoleSystem}
}

// ActorID renders the user id for audit and log fields.
func (c CallerIdentity) ActorID() string {
	if c.UserID == 0 {
		return ""
	}
	return c.UserID.String()
}

func (c CallerIdentity) IsAnonymous() bool {
	return c.UserID == 0 && c.Role == ""
}

func (c CallerIdentity) Is(roles ...Role) bool {
	for _, role := range roles {
		if c.Role == role {
			return true
		}
	}
	return false
}

// OwnsEmail reports whether email belongs to the caller.
func (c CallerIdentity) OwnsEmail(email string) bool {
	mine := NormalizeEmail(c.Email)
	if mine == "" {
		return false
	}
	return mine == NormalizeEmail(email)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
