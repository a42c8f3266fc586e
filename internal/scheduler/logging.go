package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/roomlease/internal/observability/context"
	obslogger "github.com/smallbiznis/roomlease/internal/observability/logger"
	"go.uber.org/zap"
)

// jobRun tracks one execution of a job. Its id doubles as the request id
// so database and audit logs written during the run correlate.
type jobRun struct {
	id        string
	job       string
	startedAt time.Time
	log       *zap.Logger

	processed int64
	failed    bool
}

type jobRunKey struct{}

func (s *Scheduler) beginRun(ctx context.Context, job string) (context.Context, *jobRun) {
	id := s.genID.Generate().String()
	ctx = obscontext.WithActor(ctx, "System", "scheduler")
	ctx = obscontext.WithRequestID(ctx, id)

	run := &jobRun{
		id:        id,
		job:       job,
		startedAt: s.clock.Now(),
		log:       obslogger.WithContext(ctx, s.log).With(zap.String("job", job), zap.String("run_id", id)),
	}
	run.log.Info("scheduler.job.start")
	return context.WithValue(ctx, jobRunKey{}, run), run
}

func runFrom(ctx context.Context) *jobRun {
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (r *jobRun) logger() *zap.Logger {
	if r == nil {
		return zap.NewNop()
	}
	return r.log
}

func (r *jobRun) swept(n int64) {
	if r != nil && n > 0 {
		r.processed += n
	}
}

func (r *jobRun) finish(now time.Time, err error) {
	if r == nil {
		return
	}
	r.failed = err != nil
	fields := []zap.Field{
		zap.Int64("duration_ms", now.Sub(r.startedAt).Milliseconds()),
		zap.Int64("processed_count", r.processed),
	}
	if r.failed {
		r.log.Warn("scheduler.job.finish", append(fields, zap.Error(err))...)
		return
	}
	r.log.Info("scheduler.job.finish", fields...)
}
