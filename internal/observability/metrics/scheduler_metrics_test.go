package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  fmt.Errorf("sweep: %w", context.DeadlineExceeded),
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestSchedulerMetricsRecordsRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulerMetrics(reg, Config{})

	m.IncJobRun("overdue_sweep")
	m.ObserveJobDuration("overdue_sweep", 20*time.Millisecond)
	m.AddItemsProcessed("overdue_sweep", 4)
	m.AddItemsProcessed("overdue_sweep", 0)
	m.IncJobError("overdue_sweep", errors.New("boom"))

	if got := testutil.ToFloat64(m.jobRuns.WithLabelValues("overdue_sweep")); got != 1 {
		t.Fatalf("expected 1 run, got %v", got)
	}
	if got := testutil.ToFloat64(m.itemsProcessed.WithLabelValues("overdue_sweep")); got != 4 {
		t.Fatalf("expected 4 items, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobErrors.WithLabelValues("overdue_sweep", SchedulerJobReasonUnknown)); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
}
