package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	auditdomain "github.com/smallbiznis/roomlease/internal/audit/domain"
	"github.com/smallbiznis/roomlease/internal/config"
	contractdomain "github.com/smallbiznis/roomlease/internal/contract/domain"
	"github.com/smallbiznis/roomlease/internal/identity"
	invoicedomain "github.com/smallbiznis/roomlease/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/roomlease/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/roomlease/internal/invoice/service"
	obsmetrics "github.com/smallbiznis/roomlease/internal/observability/metrics"
	"github.com/smallbiznis/roomlease/internal/servicetest"
	"go.uber.org/zap"
)

func TestOverdueSweepFollowsClock(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()

	invoiceSvc := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB:       env.DB,
		Log:      env.Log,
		GenID:    env.GenID,
		Clock:    env.Clock,
		Policy:   config.NewStaticInvoicePolicy(config.DefaultInvoicePolicy()),
		Authz:    env.Authz,
		Scope:    env.Scope,
		AuditSvc: env.Audit,
		Repo:     invoicerepository.Provide(),
	})
	sched, err := New(Params{
		Log:        zap.NewNop(),
		GenID:      env.GenID,
		Clock:      env.Clock,
		InvoiceSvc: invoiceSvc,
		Metrics:    obsmetrics.NewSchedulerMetrics(prometheus.NewRegistry(), obsmetrics.Config{}),
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	owner := env.User(t, identity.RoleOwner, "owner@x.com")
	room := env.Room(t, owner, "Attic", 900000)
	tenant := env.Tenant(t, "Hana", "hana@x.com")
	contract := env.Contract(t, tenant, room, contractdomain.ContractStatusActive, servicetest.Epoch)
	invoice := env.Invoice(t, contract, "INV-SWEEP", 900000, servicetest.Epoch.AddDate(0, 0, 2))

	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	assertStatus(t, env, invoice, invoicedomain.InvoiceStatusPending)

	// Still pending on its due date.
	env.Clock.Advance(48 * time.Hour)
	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("due date run: %v", err)
	}
	assertStatus(t, env, invoice, invoicedomain.InvoiceStatusPending)

	env.Clock.Advance(24 * time.Hour)
	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("overdue run: %v", err)
	}
	assertStatus(t, env, invoice, invoicedomain.InvoiceStatusOverdue)

	if got := env.AuditCount(t, auditdomain.ActionInvoiceOverdue); got != 1 {
		t.Fatalf("expected 1 overdue audit entry, got %d", got)
	}
}

func assertStatus(t *testing.T, env *servicetest.Env, invoice invoicedomain.Invoice, want invoicedomain.InvoiceStatus) {
	t.Helper()
	stored, err := invoicerepository.Provide().FindByID(context.Background(), env.DB, invoice.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if stored.Status != want {
		t.Fatalf("expected status %s, got %s", want, stored.Status)
	}
}
