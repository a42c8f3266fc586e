package service_test

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/roomlease/internal/audit/domain"
	"github.com/smallbiznis/roomlease/internal/authorization"
	"github.com/smallbiznis/roomlease/internal/identity"
	obscontext "github.com/smallbiznis/roomlease/internal/observability/context"
	"github.com/smallbiznis/roomlease/internal/servicetest"
	"github.com/smallbiznis/roomlease/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogMasksMetadata(t *testing.T) {
	env := servicetest.New(t)
	owner := env.User(t, identity.RoleOwner, "owner@x.com")
	ctx := obscontext.WithRequestID(context.Background(), "req-1")

	target := " 42 "
	require.NoError(t, env.Audit.AuditLog(ctx, nil, owner, auditdomain.ActionTenantCreate, auditdomain.TargetTenant, &target, map[string]any{
		"full_name": "Alice",
		"phone":     "0901234567",
		"email":     "alice@x.com",
	}))

	resp, err := env.Audit.List(context.Background(), owner, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "Owner", entry.ActorRole)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, owner.UserID.String(), *entry.ActorID)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, "42", *entry.TargetID)
	assert.Equal(t, "Alice", entry.Metadata["full_name"])
	assert.Equal(t, "****4567", entry.Metadata["phone"])
	assert.Equal(t, "****@x.com", entry.Metadata["email"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
}

func TestAuditLogRequiresAction(t *testing.T) {
	env := servicetest.New(t)

	err := env.Audit.AuditLog(context.Background(), nil, identity.System(), " ", auditdomain.TargetInvoice, nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListFiltersAndPaging(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	admin := env.User(t, identity.RoleAdmin, "admin@x.com")

	for i := 0; i < 3; i++ {
		require.NoError(t, env.Audit.AuditLog(ctx, nil, admin, auditdomain.ActionRoomCreate, auditdomain.TargetRoom, nil, nil))
		env.Clock.Advance(time.Minute)
	}
	require.NoError(t, env.Audit.AuditLog(ctx, nil, identity.System(), auditdomain.ActionInvoiceOverdue, auditdomain.TargetInvoice, nil, map[string]any{"count": 2}))

	resp, err := env.Audit.List(ctx, admin, auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{Page: 1, PageSize: 2},
		Action:     auditdomain.ActionRoomCreate,
	})
	require.NoError(t, err)
	assert.Len(t, resp.AuditLogs, 2)
	assert.Equal(t, int64(3), resp.TotalItems)
	assert.Equal(t, 2, resp.TotalPages)
	assert.True(t, resp.HasNext)

	resp, err = env.Audit.List(ctx, admin, auditdomain.ListAuditLogRequest{ActorRole: "System"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Nil(t, resp.AuditLogs[0].ActorID)
	assert.Equal(t, auditdomain.ActionInvoiceOverdue, resp.AuditLogs[0].Action)
}

func TestListRejectsTenantsAndBadRanges(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	tenant := env.User(t, identity.RoleTenant, "t@x.com")
	owner := env.User(t, identity.RoleOwner, "o@x.com")

	_, err := env.Audit.List(ctx, tenant, auditdomain.ListAuditLogRequest{})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	start := servicetest.Epoch
	end := start.Add(-time.Hour)
	_, err = env.Audit.List(ctx, owner, auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
