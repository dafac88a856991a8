package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "escrow"

const (
	jobOutcomeSuccess = "success"
	jobOutcomeFailure = "failure"
)

// CronJobMetrics tracks scheduled jobs. A nil value, or one built without a registerer,
// records nothing.
type CronJobMetrics struct {
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	processed   *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Wall time of one cron job run.",
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 60, 300, 900},
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_runs_total",
			Help:      "Cron job runs by outcome.",
		}, []string{"job", "outcome"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_rows_processed_total",
			Help:      "Rows handled by cron jobs.",
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run; alert when it goes stale.",
		}, []string{"job"}),
		now: time.Now,
	}
	reg.MustRegister(m.duration, m.runs, m.processed, m.lastSuccess)
	return m
}

func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.runs.WithLabelValues(job, jobOutcomeSuccess).Inc()
	c.lastSuccess.WithLabelValues(job).Set(float64(c.now().Unix()))
}

func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), jobOutcomeFailure).Inc()
}

// AddProcessed counts rows a job touched in one run.
func (c *CronJobMetrics) AddProcessed(job string, rows int) {
	if c == nil || c.processed == nil || rows <= 0 {
		return
	}
	c.processed.WithLabelValues(normalizeLabel(job)).Add(float64(rows))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
