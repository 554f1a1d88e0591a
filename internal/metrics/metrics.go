package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "panel_sentinel"

// Label values shared by callers.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics groups every counter. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Cycles        prometheus.Counter
	PhaseErrors   *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	BulkWrites    *prometheus.CounterVec
	Alerts        *prometheus.CounterVec
	Reevaluations *prometheus.CounterVec
}

// New registers the counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Poll loop cycles started.",
		}),
		PhaseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_errors_total",
			Help:      "Cycle phases that failed or panicked.",
		}, []string{"phase"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Arm state edges applied, by new state.",
		}, []string{"to"}),
		BulkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_writes_total",
			Help:      "Bulk reactive-state writes to the live system.",
		}, []string{"result"}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Disarmed alerts sent.",
		}, []string{"result"}),
		Reevaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reevaluations_total",
			Help:      "Manual reevaluations, by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.Cycles,
		m.PhaseErrors,
		m.Transitions,
		m.BulkWrites,
		m.Alerts,
		m.Reevaluations,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CycleStarted counts a poll loop cycle.
func (m *Metrics) CycleStarted() {
	if m == nil {
		return
	}

	m.Cycles.Inc()
}

// PhaseFailed counts a failed phase.
func (m *Metrics) PhaseFailed(phase string) {
	if m == nil {
		return
	}

	m.PhaseErrors.WithLabelValues(phase).Inc()
}

// Transitioned counts an applied edge.
func (m *Metrics) Transitioned(to string) {
	if m == nil {
		return
	}

	m.Transitions.WithLabelValues(to).Inc()
}

// BulkWrite counts a bulk write by outcome.
func (m *Metrics) BulkWrite(err error) {
	if m == nil {
		return
	}

	m.BulkWrites.WithLabelValues(resultOf(err)).Inc()
}

// AlertSent counts an alert by outcome.
func (m *Metrics) AlertSent(err error) {
	if m == nil {
		return
	}

	m.Alerts.WithLabelValues(resultOf(err)).Inc()
}

// Reevaluated counts a manual reevaluation outcome.
func (m *Metrics) Reevaluated(outcome string) {
	if m == nil {
		return
	}

	m.Reevaluations.WithLabelValues(outcome).Inc()
}

func resultOf(err error) string {
	if err != nil {
		return ResultFailure
	}

	return ResultSuccess
}
