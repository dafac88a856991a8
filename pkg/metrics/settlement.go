package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels used alongside error codes.
const (
	OutcomeSuccess = "success"
	OutcomeNoop    = "noop"
)

// SettlementMetrics instruments the settlement operations and their alerts.
type SettlementMetrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	alerts      *prometheus.CounterVec
	sideEffects *prometheus.CounterVec
	drift       *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_operations_total",
		Help:      "Settlement operations by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "settlement_operation_duration_seconds",
		Help:      "Duration of settlement units of work.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_ledger_alerts_total",
		Help:      "Ledger sufficiency failures that indicate a broken invariant.",
	}, []string{"operation"})
	sideEffects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_side_effect_failures_total",
		Help:      "Best-effort side effects that failed after commit.",
	}, []string{"effect"})
	drift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_wallet_drift_total",
		Help:      "Wallet counters that disagree with the journal.",
	}, []string{"counter"})
	reg.MustRegister(operations, duration, alerts, sideEffects, drift)
	return &SettlementMetrics{
		operations:  operations,
		duration:    duration,
		alerts:      alerts,
		sideEffects: sideEffects,
		drift:       drift,
	}
}

// ObserveOperation records the outcome and latency of one operation.
func (m *SettlementMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(elapsed.Seconds())
}

// IncLedgerAlert counts an InsufficientPending raised during a release.
func (m *SettlementMetrics) IncLedgerAlert(operation string) {
	if m == nil || m.alerts == nil {
		return
	}
	m.alerts.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncSideEffectFailure counts a failed notification, refund or cache call.
func (m *SettlementMetrics) IncSideEffectFailure(effect string) {
	if m == nil || m.sideEffects == nil {
		return
	}
	m.sideEffects.WithLabelValues(normalizeLabel(effect)).Inc()
}

// IncWalletDrift counts a reconciliation mismatch on the named counter.
func (m *SettlementMetrics) IncWalletDrift(counter string) {
	if m == nil || m.drift == nil {
		return
	}
	m.drift.WithLabelValues(normalizeLabel(counter)).Inc()
}
