package token

import (
	"testing"
	"time"

	"github.com/smallbiznis/roomlease/internal/clock"
	"github.com/smallbiznis/roomlease/internal/config"
	"github.com/smallbiznis/roomlease/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, clk clock.Clock) *Manager {
	t.Helper()
	m, err := NewManager(config.Config{
		AuthJWTSecret: "test-secret",
		AuthJWTIssuer: "roomlease",
		AuthJWTTTL:    time.Hour,
	}, clk)
	require.NoError(t, err)
	return m
}

func TestIssueAndParse(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	m := newManager(t, clk)

	caller := identity.CallerIdentity{UserID: 42, Email: "a@x.com", Role: identity.RoleTenant}
	raw, err := m.Issue(caller)
	require.NoError(t, err)

	parsed, err := m.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, caller, parsed)
}

func TestParseExpired(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	m := newManager(t, clk)

	raw, err := m.Issue(identity.CallerIdentity{UserID: 42, Email: "a@x.com", Role: identity.RoleOwner})
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseWrongSecret(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	raw, err := newManager(t, clk).Issue(identity.CallerIdentity{UserID: 7, Role: identity.RoleAdmin})
	require.NoError(t, err)

	other, err := NewManager(config.Config{AuthJWTSecret: "other", AuthJWTIssuer: "roomlease"}, clk)
	require.NoError(t, err)
	_, err = other.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager(config.Config{}, clock.New())
	assert.Error(t, err)
}

func TestFromHeader(t *testing.T) {
	raw, ok := FromHeader("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", raw)

	raw, ok = FromHeader("bearer   abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", raw)

	_, ok = FromHeader("Basic abc")
	assert.False(t, ok)
	_, ok = FromHeader("Bearer ")
	assert.False(t, ok)
}
