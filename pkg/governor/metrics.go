package governor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"athena-ops/governor/pkg/ledger"
	"athena-ops/governor/pkg/policy"
)

// Metrics tracks Prometheus metrics for the budget governor.
//
// Metrics:
//   - athena_governor_cost_total: Total cost in USD by service
//   - athena_governor_operations_total: Operation count by kind
//   - athena_governor_budget_usage_ratio: Spend over daily limit (0.0-1.0+)
//   - athena_governor_escalation_level: Current level as ordinal (0-4)
//   - athena_governor_escalations_total: Threshold crossings by level
//   - athena_governor_admission_denials_total: Gate denials by kind
//   - athena_governor_ledger_persist_duration_seconds: Persistence latency
type Metrics struct {
	costTotal        *prometheus.CounterVec
	operationsTotal  *prometheus.CounterVec
	usageRatio       prometheus.Gauge
	escalationLevel  prometheus.Gauge
	escalationsTotal *prometheus.CounterVec
	admissionDenials *prometheus.CounterVec
	persistDuration  prometheus.Histogram
}

// NewMetrics creates and registers governor metrics with the provided
// registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "athena",
				Subsystem: "governor",
				Name:      "cost_total",
				Help:      "Total cost in USD by service",
			},
			[]string{"service"},
		),

		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "athena",
				Subsystem: "governor",
				Name:      "operations_total",
				Help:      "Total costed operations by kind",
			},
			[]string{"kind"},
		),

		usageRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "athena",
				Subsystem: "governor",
				Name:      "budget_usage_ratio",
				Help:      "Period spend as a fraction of the daily limit",
			},
		),

		escalationLevel: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "athena",
				Subsystem: "governor",
				Name:      "escalation_level",
				Help:      "Current escalation level as an ordinal (0=normal, 4=shutdown)",
			},
		),

		escalationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "athena",
				Subsystem: "governor",
				Name:      "escalations_total",
				Help:      "Total threshold crossings by resulting level",
			},
			[]string{"level"},
		),

		admissionDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "athena",
				Subsystem: "governor",
				Name:      "admission_denials_total",
				Help:      "Total operations denied by the admission gate, by kind",
			},
			[]string{"kind"},
		),

		persistDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "athena",
				Subsystem: "governor",
				Name:      "ledger_persist_duration_seconds",
				Help:      "Duration of ledger persistence writes in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 100µs to ~400ms
			},
		),
	}

	registry.MustRegister(
		m.costTotal,
		m.operationsTotal,
		m.usageRatio,
		m.escalationLevel,
		m.escalationsTotal,
		m.admissionDenials,
		m.persistDuration,
	)

	return m
}

// ObserveCost records spend against a service.
func (m *Metrics) ObserveCost(service ledger.Service, amount float64) {
	if amount < 0 {
		return
	}
	m.costTotal.WithLabelValues(string(service)).Add(amount)
}

// ObserveOperation records one costed operation.
func (m *Metrics) ObserveOperation(kind ledger.OperationKind) {
	m.operationsTotal.WithLabelValues(string(kind)).Inc()
}

// SetUsageRatio updates the budget usage gauge.
func (m *Metrics) SetUsageRatio(ratio float64) {
	m.usageRatio.Set(ratio)
}

// SetLevel updates the escalation level gauge.
func (m *Metrics) SetLevel(level policy.Level) {
	m.escalationLevel.Set(float64(level))
}

// RecordEscalation counts a threshold crossing.
func (m *Metrics) RecordEscalation(level policy.Level) {
	m.escalationsTotal.WithLabelValues(level.String()).Inc()
}

// RecordAdmissionDenied counts a gate denial.
func (m *Metrics) RecordAdmissionDenied(kind ledger.OperationKind) {
	m.admissionDenials.WithLabelValues(string(kind)).Inc()
}

// ObservePersist records the latency of one ledger write.
func (m *Metrics) ObservePersist(d time.Duration) {
	m.persistDuration.Observe(d.Seconds())
}
