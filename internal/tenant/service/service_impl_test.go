package service

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/roomlease/internal/audit/domain"
	"github.com/smallbiznis/roomlease/internal/authorization"
	contractdomain "github.com/smallbiznis/roomlease/internal/contract/domain"
	"github.com/smallbiznis/roomlease/internal/identity"
	"github.com/smallbiznis/roomlease/internal/servicetest"
	"github.com/smallbiznis/roomlease/internal/tenant/domain"
	"github.com/smallbiznis/roomlease/internal/tenant/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (domain.Service, *servicetest.Env) {
	t.Helper()
	env := servicetest.New(t)
	return New(Params{
		DB:       env.DB,
		Log:      env.Log,
		GenID:    env.GenID,
		Clock:    env.Clock,
		Authz:    env.Authz,
		AuditSvc: env.Audit,
		Repo:     repository.Provide(),
	}), env
}

func TestCreateTenant(t *testing.T) {
	svc, env := newTestService(t)
	owner := env.User(t, identity.RoleOwner, "owner@x.com")

	email := " Carol@X.com "
	tenant, err := svc.Create(context.Background(), owner, domain.CreateTenantRequest{
		FullName: " Carol ",
		Phone:    "0911",
		Email:    &email,
	})
	require.NoError(t, err)
	assert.Equal(t, "Carol", tenant.FullName)
	require.NotNil(t, tenant.Email)
	assert.Equal(t, "carol@x.com", *tenant.Email)
	assert.Nil(t, tenant.Address)
	assert.Nil(t, tenant.UserID)
	assert.Equal(t, int64(1), env.AuditCount(t, auditdomain.ActionTenantCreate))
}

func TestCreateTenantValidation(t *testing.T) {
	svc, env := newTestService(t)
	owner := env.User(t, identity.RoleOwner, "owner@x.com")
	bad := "nope"

	cases := []struct {
		name string
		req  domain.CreateTenantRequest
		want error
	}{
		{"name", domain.CreateTenantRequest{Phone: "1"}, domain.ErrFullNameRequired},
		{"phone", domain.CreateTenantRequest{FullName: "A", Phone: " "}, domain.ErrPhoneRequired},
		{"email", domain.CreateTenantRequest{FullName: "A", Phone: "1", Email: &bad}, domain.ErrInvalidEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), owner, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	tenantCaller := env.User(t, identity.RoleTenant, "t@x.com")
	_, err := svc.Create(context.Background(), tenantCaller, domain.CreateTenantRequest{FullName: "A", Phone: "1"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestGetTenantListsContracts(t *testing.T) {
	svc, env := newTestService(t)
	ctx := context.Background()
	owner := env.User(t, identity.RoleOwner, "owner@x.com")

	tenant := env.Tenant(t, "Dan", "dan@x.com")
	first := env.Room(t, owner, "First", 100)
	second := env.Room(t, owner, "Second", 200)
	old := env.Contract(t, tenant, first, contractdomain.ContractStatusTerminated, servicetest.Epoch.AddDate(-1, 0, 0))
	current := env.Contract(t, tenant, second, contractdomain.ContractStatusActive, servicetest.Epoch)

	detail, err := svc.Get(ctx, owner, tenant.ID.String())
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, detail.ID)
	require.Len(t, detail.Contracts, 2)
	assert.Equal(t, current.ID, detail.Contracts[0].ID)
	assert.Equal(t, "Second", detail.Contracts[0].RoomTitle)
	assert.Equal(t, old.ID, detail.Contracts[1].ID)
	assert.Equal(t, string(contractdomain.ContractStatusTerminated), detail.Contracts[1].Status)

	lonely := env.Tenant(t, "Erin", "")
	detail, err = svc.Get(ctx, owner, lonely.ID.String())
	require.NoError(t, err)
	assert.NotNil(t, detail.Contracts)
	assert.Empty(t, detail.Contracts)

	_, err = svc.Get(ctx, owner, "424242")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Get(ctx, owner, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestListTenants(t *testing.T) {
	svc, env := newTestService(t)
	ctx := context.Background()
	owner := env.User(t, identity.RoleOwner, "owner@x.com")

	env.Tenant(t, "Fay", "")
	env.Clock.Advance(time.Minute)
	newest := env.Tenant(t, "Gus", "")

	tenants, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, newest.ID, tenants[0].ID)

	_, err = svc.List(ctx, identity.CallerIdentity{})
	assert.ErrorIs(t, err, authorization.ErrUnauthorized)
}
