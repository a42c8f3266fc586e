package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/roomlease/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewsForHidesOwnerFromTenantsAndAnonymous(t *testing.T) {
	rooms := []*Room{
		{ID: 1, Title: "A", Price: decimal.NewFromInt(100), OwnerID: 7},
		nil,
		{ID: 2, Title: "B", Price: decimal.NewFromInt(200), OwnerID: 7},
	}

	for _, role := range []identity.Role{"", identity.RoleTenant} {
		views := ViewsFor(role, rooms)
		require.Len(t, views, 2)
		for _, view := range views {
			assert.Nil(t, view.OwnerID, "role %q", role)
		}
	}

	views := ViewsFor(identity.RoleOwner, rooms)
	require.Len(t, views, 2)
	assert.Equal(t, "A", views[0].Title)
	require.NotNil(t, views[1].OwnerID)
	assert.EqualValues(t, 7, *views[1].OwnerID)
}
