package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/roomlease/internal/clock"
	"github.com/smallbiznis/roomlease/internal/identity"
	invoicedomain "github.com/smallbiznis/roomlease/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/roomlease/internal/observability/metrics"
	"github.com/smallbiznis/roomlease/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobOverdueSweep = "overdue_sweep"

	overdueLockKey = "roomlease:scheduler:overdue_sweep"
)

var ErrInvalidConfig = errors.New("scheduler: invalid config")

type overdueMarker interface {
	MarkOverdue(ctx context.Context, caller identity.CallerIdentity, now time.Time) (int64, error)
}

type leaser interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (*ratelimit.Lease, error)
	Release(ctx context.Context, lease *ratelimit.Lease) error
}

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	InvoiceSvc invoicedomain.Service
	Locker     *ratelimit.Locker            `optional:"true"`
	Metrics    *obsmetrics.SchedulerMetrics `optional:"true"`
	Config     Config                       `optional:"true"`
}

// Scheduler runs the periodic invoice sweeps. With redis configured only
// one replica runs a given tick.
type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	invoice overdueMarker
	locker  leaser
	metrics *obsmetrics.SchedulerMetrics

	mu   sync.Mutex
	cron *cron.Cron
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.InvoiceSvc == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		invoice: p.InvoiceSvc,
		metrics: p.Metrics,
	}
	if p.Locker.Enabled() {
		s.locker = p.Locker
	}
	return s, nil
}

// Start registers the sweeps on a cron runner. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	runner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := runner.AddFunc(s.cfg.OverdueSpec, func() {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule %s %q: %w", JobOverdueSweep, s.cfg.OverdueSpec, err)
	}

	runner.Start()
	s.cron = runner
	s.log.Info("scheduler started", zap.String("overdue_spec", s.cfg.OverdueSpec))
	return nil
}

// Stop waits for a running job to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	runner := s.cron
	s.cron = nil
	s.mu.Unlock()
	if runner == nil {
		return nil
	}

	select {
	case <-runner.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, JobOverdueSweep, s.cfg.JobTimeout, s.OverdueSweepJob)
}

// OverdueSweepJob moves PENDING invoices due before today to OVERDUE.
func (s *Scheduler) OverdueSweepJob(ctx context.Context) error {
	run := runFrom(ctx)

	release, ok, err := s.acquire(ctx, overdueLockKey)
	if err != nil {
		return err
	}
	if !ok {
		s.metrics.IncJobSkipped(JobOverdueSweep, obsmetrics.SchedulerSkipReasonLockHeld)
		run.logger().Debug("scheduler.job.skipped", zap.String("reason", obsmetrics.SchedulerSkipReasonLockHeld))
		return nil
	}
	defer release()

	count, err := s.invoice.MarkOverdue(ctx, identity.System(), s.clock.Now())
	if err != nil {
		return err
	}
	run.swept(count)
	s.metrics.AddItemsProcessed(JobOverdueSweep, count)
	return nil
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.beginRun(ctx, name)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	now := s.clock.Now()
	s.metrics.ObserveJobDuration(name, now.Sub(start))
	run.finish(now, err)
	if err == nil {
		return nil
	}

	s.metrics.IncJobError(name, err)
	// A deadline is a soft failure; the next tick retries.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		run.logger().Warn("job timed out", zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// acquire takes the cluster lease for key. Without redis every replica runs.
func (s *Scheduler) acquire(ctx context.Context, key string) (func(), bool, error) {
	if s.locker == nil {
		return func() {}, true, nil
	}
	lease, err := s.locker.TryAcquire(ctx, key, s.cfg.LockTTL)
	if err != nil {
		return nil, false, err
	}
	if lease == nil {
		return nil, false, nil
	}
	return func() {
		// The job context may already be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx, lease); err != nil {
			s.log.Warn("failed to release scheduler lock", zap.String("key", key), zap.Error(err))
		}
	}, true, nil
}
