package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCronJobMetricsCountsRunsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	fixed := time.Unix(1_772_000_000, 0)
	m.now = func() time.Time { return fixed }

	m.ObserveDuration("auto-complete", 250*time.Millisecond)
	m.IncSuccess("auto-complete")
	m.IncSuccess("auto-complete")
	m.IncFailure("auto-complete")
	m.AddProcessed("auto-complete", 3)
	m.AddProcessed("auto-complete", 0)

	if got := testutil.ToFloat64(m.runs.WithLabelValues("auto-complete", jobOutcomeSuccess)); got != 2 {
		t.Fatalf("expected two successful runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("auto-complete", jobOutcomeFailure)); got != 1 {
		t.Fatalf("expected one failed run, got %v", got)
	}
	if got := testutil.ToFloat64(m.processed.WithLabelValues("auto-complete")); got != 3 {
		t.Fatalf("expected three processed rows, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastSuccess.WithLabelValues("auto-complete")); got != float64(fixed.Unix()) {
		t.Fatalf("unexpected last success %v", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchHistogramSum(mfs, "escrow_cron_job_duration_seconds", "job", "auto-complete"); err != nil || got <= 0 {
		t.Fatalf("expected duration sum > 0, got %v (%v)", got, err)
	}
}

func TestNilCronMetricsAreSafe(t *testing.T) {
	var m *CronJobMetrics
	m.IncSuccess("job")
	m.IncFailure("job")
	m.ObserveDuration("job", time.Second)
	NewCronJobMetrics(nil).AddProcessed("job", 1)
	NewCronJobMetrics(nil).IncSuccess("")
}
