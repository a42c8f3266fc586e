// Package servicetest wires the shared collaborators of domain services
// over a migrated in-memory database.
package servicetest

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/roomlease/internal/audit/domain"
	auditrepository "github.com/smallbiznis/roomlease/internal/audit/repository"
	auditservice "github.com/smallbiznis/roomlease/internal/audit/service"
	authdomain "github.com/smallbiznis/roomlease/internal/auth/domain"
	"github.com/smallbiznis/roomlease/internal/authorization"
	"github.com/smallbiznis/roomlease/internal/clock"
	contractdomain "github.com/smallbiznis/roomlease/internal/contract/domain"
	"github.com/smallbiznis/roomlease/internal/identity"
	invoicedomain "github.com/smallbiznis/roomlease/internal/invoice/domain"
	"github.com/smallbiznis/roomlease/internal/migration/migrationtest"
	roomdomain "github.com/smallbiznis/roomlease/internal/room/domain"
	tenantdomain "github.com/smallbiznis/roomlease/internal/tenant/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Epoch is the fake clock's starting instant.
var Epoch = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

type Env struct {
	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock *clock.FakeClock
	Authz authorization.Service
	Scope authorization.Scope
	Audit auditdomain.Service
}

func New(t testing.TB) *Env {
	t.Helper()

	conn := migrationtest.NewDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	enforcer, err := authorization.NewEnforcer(conn)
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}

	log := zap.NewNop()
	clk := clock.NewFakeClock(Epoch)
	authz := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer})

	return &Env{
		DB:    conn,
		Log:   log,
		GenID: node,
		Clock: clk,
		Authz: authz,
		Scope: authorization.NewScope(conn),
		Audit: auditservice.NewService(auditservice.Params{
			DB:    conn,
			Log:   log,
			GenID: node,
			Clock: clk,
			Authz: authz,
			Repo:  auditrepository.Provide(),
		}),
	}
}

// User inserts an account and returns its caller identity.
func (e *Env) User(t testing.TB, role identity.Role, email string) identity.CallerIdentity {
	t.Helper()
	user := authdomain.User{
		ID:           e.GenID.Generate(),
		Email:        identity.NormalizeEmail(email),
		FullName:     email,
		Role:         role.String(),
		PasswordHash: "-",
		CreatedAt:    e.Clock.Now(),
	}
	e.create(t, &user)
	return user.Caller()
}

func (e *Env) Room(t testing.TB, owner identity.CallerIdentity, title string, price int64) roomdomain.Room {
	t.Helper()
	room := roomdomain.Room{
		ID:          e.GenID.Generate(),
		Title:       title,
		Address:     "1 " + title + " Street",
		Price:       decimal.NewFromInt(price),
		Area:        20,
		IsAvailable: true,
		OwnerID:     owner.UserID,
		CreatedAt:   e.Clock.Now(),
	}
	e.create(t, &room)
	return room
}

// Tenant inserts a tenant profile. An empty email leaves it unset.
func (e *Env) Tenant(t testing.TB, fullName, email string) tenantdomain.Tenant {
	t.Helper()
	tenant := tenantdomain.Tenant{
		ID:        e.GenID.Generate(),
		FullName:  fullName,
		Phone:     "0900000000",
		CreatedAt: e.Clock.Now(),
	}
	if email != "" {
		normalized := identity.NormalizeEmail(email)
		tenant.Email = &normalized
	}
	e.create(t, &tenant)
	return tenant
}

func (e *Env) Contract(t testing.TB, tenant tenantdomain.Tenant, room roomdomain.Room, status contractdomain.ContractStatus, startDate time.Time) contractdomain.Contract {
	t.Helper()
	contract := contractdomain.Contract{
		ID:          e.GenID.Generate(),
		TenantID:    tenant.ID,
		RoomID:      room.ID,
		MonthlyRent: room.Price,
		StartDate:   clock.DateOnly(startDate),
		Status:      status,
		CreatedAt:   e.Clock.Now(),
	}
	if status == contractdomain.ContractStatusTerminated {
		terminatedAt := e.Clock.Now()
		contract.TerminatedAt = &terminatedAt
	}
	e.create(t, &contract)
	return contract
}

func (e *Env) Invoice(t testing.TB, contract contractdomain.Contract, number string, amount int64, dueDate time.Time) invoicedomain.Invoice {
	t.Helper()
	invoice := invoicedomain.Invoice{
		ID:            e.GenID.Generate(),
		RoomID:        contract.RoomID,
		ContractID:    contract.ID,
		InvoiceNumber: number,
		IssueDate:     clock.DateOnly(dueDate.AddDate(0, 0, -7)),
		DueDate:       clock.DateOnly(dueDate),
		Period:        "2024-03",
		RoomRent:      decimal.NewFromInt(amount),
		Amount:        decimal.NewFromInt(amount),
		Status:        invoicedomain.InvoiceStatusPending,
		CreatedAt:     e.Clock.Now(),
	}
	e.create(t, &invoice)
	return invoice
}

// AuditCount counts audit entries with the given action.
func (e *Env) AuditCount(t testing.TB, action string) int64 {
	t.Helper()
	var count int64
	if err := e.DB.WithContext(context.Background()).Model(&auditdomain.AuditLog{}).Where("action = ?", action).Count(&count).Error; err != nil {
		t.Fatalf("count audit logs: %v", err)
	}
	return count
}

func (e *Env) create(t testing.TB, value any) {
	t.Helper()
	if err := e.DB.Omit(clause.Associations).Create(value).Error; err != nil {
		t.Fatalf("insert %T: %v", value, err)
	}
}
