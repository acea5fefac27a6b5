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
	dto "github.com/prometheus/client_model/go"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: fmt.Errorf("wrapped: %w", context.DeadlineExceeded), want: SchedulerJobReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation_gorm", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "unique_violation_pg", err: &pgconn.PgError{Code: "23505"}, want: SchedulerJobReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
		{name: "nil", err: nil, want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestSchedulerMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulerMetrics(reg, Config{ServiceName: "mailroom-test", Environment: "test"})

	m.IncJobRun("fee_recalculation")
	m.IncJobRun("fee_recalculation")
	m.IncJobError("fee_recalculation", context.DeadlineExceeded)
	m.IncJobSkipped("fee_recalculation", SchedulerSkipReasonLockHeld)
	m.AddFeeRows("updated", 3)
	m.AddFeeRows("error", 0)
	m.ObserveJobDuration("fee_recalculation", 2*time.Second)

	if got := testutil.ToFloat64(m.jobRuns.WithLabelValues("fee_recalculation")); got != 2 {
		t.Fatalf("expected 2 job runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobErrors.WithLabelValues("fee_recalculation", SchedulerJobReasonDeadlineExceeded)); got != 1 {
		t.Fatalf("expected 1 deadline error, got %v", got)
	}
	if got := testutil.ToFloat64(m.feeRows.WithLabelValues("updated")); got != 3 {
		t.Fatalf("expected 3 updated rows, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var skipped *dto.MetricFamily
	for _, family := range families {
		if family.GetName() == "mailroom_scheduler_job_skipped_total" {
			skipped = family
		}
	}
	if skipped == nil || len(skipped.GetMetric()) != 1 {
		t.Fatalf("expected a single skipped series, got %v", skipped)
	}
	labels := map[string]string{}
	for _, pair := range skipped.GetMetric()[0].GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	if labels["service"] != "mailroom-test" || labels["reason"] != SchedulerSkipReasonLockHeld {
		t.Fatalf("unexpected labels %v", labels)
	}
}

func TestNilSchedulerMetricsAreSafe(t *testing.T) {
	var m *SchedulerMetrics
	m.IncJobRun("x")
	m.IncJobError("x", errors.New("boom"))
	m.AddFeeRows("updated", 1)
	m.ObserveRunLoopLag(time.Second)
}
