package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" tenant ")
	assert.True(t, ok)
	assert.Equal(t, RoleTenant, role)

	_, ok = ParseRole("landlord")
	assert.False(t, ok)
}

func TestCallerIdentity(t *testing.T) {
	var anon CallerIdentity
	assert.True(t, anon.IsAnonymous())
	assert.False(t, anon.OwnsEmail(""))

	caller := CallerIdentity{UserID: 7, Email: "Alice@Example.com", Role: RoleTenant}
	assert.False(t, caller.IsAnonymous())
	assert.True(t, caller.Is(RoleOwner, RoleTenant))
	assert.False(t, caller.Is(RoleAdmin))
	assert.True(t, caller.OwnsEmail("alice@example.com "))
	assert.False(t, caller.OwnsEmail("bob@example.com"))
	assert.Equal(t, "role:tenant", caller.Role.Subject())
}

func TestSystemCaller(t *testing.T) {
	sys := System()
	assert.False(t, sys.IsAnonymous())
	assert.Equal(t, "role:system", sys.Role.Subject())
	assert.Equal(t, "", sys.ActorID())

	_, ok := ParseRole("system")
	assert.False(t, ok)
}
