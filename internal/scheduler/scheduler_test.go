package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/roomlease/internal/clock"
	"github.com/smallbiznis/roomlease/internal/identity"
	obsmetrics "github.com/smallbiznis/roomlease/internal/observability/metrics"
	"github.com/smallbiznis/roomlease/internal/ratelimit"
	"go.uber.org/zap"
)

type fakeMarker struct {
	calls  int
	caller identity.CallerIdentity
	now    time.Time
	count  int64
	err    error
}

func (f *fakeMarker) MarkOverdue(_ context.Context, caller identity.CallerIdentity, now time.Time) (int64, error) {
	f.calls++
	f.caller = caller
	f.now = now
	return f.count, f.err
}

type fakeLeaser struct {
	held     bool
	acquired []string
	released int
}

func (f *fakeLeaser) TryAcquire(_ context.Context, key string, _ time.Duration) (*ratelimit.Lease, error) {
	if f.held {
		return nil, nil
	}
	f.acquired = append(f.acquired, key)
	return &ratelimit.Lease{Key: key, Token: "t"}, nil
}

func (f *fakeLeaser) Release(context.Context, *ratelimit.Lease) error {
	f.released++
	return nil
}

var testLabels = obsmetrics.Config{ServiceName: "roomlease", Environment: "test"}

func newTestScheduler(t *testing.T, marker overdueMarker, registry *prometheus.Registry) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Scheduler{
		log:     zap.NewNop(),
		cfg:     DefaultConfig(),
		genID:   node,
		clock:   clock.NewFakeClock(time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)),
		invoice: marker,
		metrics: obsmetrics.NewSchedulerMetrics(registry, testLabels),
	}
}

func TestRunJobTimeoutDoesNotReturnError(t *testing.T) {
	registry := prometheus.NewRegistry()
	s := newTestScheduler(t, &fakeMarker{}, registry)

	err := s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	errorLabels := map[string]string{
		"service": "roomlease",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, registry, "roomlease_scheduler_job_errors_total", errorLabels); got != 1 {
		t.Fatalf("expected error count 1, got %v", got)
	}
}

func TestRunOnceCallsSweepAsSystem(t *testing.T) {
	registry := prometheus.NewRegistry()
	marker := &fakeMarker{count: 3}
	s := newTestScheduler(t, marker, registry)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if marker.calls != 1 {
		t.Fatalf("expected 1 sweep, got %d", marker.calls)
	}
	if marker.caller.Role != identity.RoleSystem {
		t.Fatalf("expected system caller, got %q", marker.caller.Role)
	}
	if !marker.now.Equal(s.clock.Now()) {
		t.Fatalf("expected sweep at clock time, got %v", marker.now)
	}

	labels := map[string]string{"service": "roomlease", "env": "test", "job": JobOverdueSweep}
	if got := getCounterValue(t, registry, "roomlease_scheduler_job_runs_total", labels); got != 1 {
		t.Fatalf("expected 1 run, got %v", got)
	}
	if got := getCounterValue(t, registry, "roomlease_scheduler_items_processed_total", labels); got != 3 {
		t.Fatalf("expected 3 items, got %v", got)
	}
}

func TestRunOnceWrapsSweepError(t *testing.T) {
	boom := errors.New("boom")
	s := newTestScheduler(t, &fakeMarker{err: boom}, prometheus.NewRegistry())

	err := s.RunOnce(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestOverdueSweepSkipsWhenLockHeld(t *testing.T) {
	registry := prometheus.NewRegistry()
	marker := &fakeMarker{}
	s := newTestScheduler(t, marker, registry)
	s.locker = &fakeLeaser{held: true}

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if marker.calls != 0 {
		t.Fatalf("expected sweep to be skipped, got %d calls", marker.calls)
	}

	labels := map[string]string{
		"service": "roomlease",
		"env":     "test",
		"job":     JobOverdueSweep,
		"reason":  obsmetrics.SchedulerSkipReasonLockHeld,
	}
	if got := getCounterValue(t, registry, "roomlease_scheduler_job_skipped_total", labels); got != 1 {
		t.Fatalf("expected 1 skip, got %v", got)
	}
}

func TestOverdueSweepReleasesLease(t *testing.T) {
	marker := &fakeMarker{}
	leases := &fakeLeaser{}
	s := newTestScheduler(t, marker, prometheus.NewRegistry())
	s.locker = leases

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(leases.acquired) != 1 || leases.acquired[0] != overdueLockKey {
		t.Fatalf("expected lease on %s, got %v", overdueLockKey, leases.acquired)
	}
	if leases.released != 1 {
		t.Fatalf("expected lease release, got %d", leases.released)
	}
	if marker.calls != 1 {
		t.Fatalf("expected 1 sweep, got %d", marker.calls)
	}
}

func TestNewRequiresInvoiceService(t *testing.T) {
	node, _ := snowflake.NewNode(1)
	s, err := New(Params{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.New(),
		InvoiceSvc: nil,
	})
	if !errors.Is(err, ErrInvalidConfig) || s != nil {
		t.Fatalf("expected ErrInvalidConfig without invoice service, got %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{JobTimeout: 10 * time.Minute}.withDefaults()
	if cfg.OverdueSpec != "@every 1h" {
		t.Fatalf("unexpected spec %q", cfg.OverdueSpec)
	}
	if cfg.LockTTL != 10*time.Minute {
		t.Fatalf("expected lock ttl to cover job timeout, got %v", cfg.LockTTL)
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
