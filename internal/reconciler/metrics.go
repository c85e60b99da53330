package reconciler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "testplan"

// Metrics tracks reconciliation outcomes for monitoring and alerting.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	decisions  *prometheus.CounterVec
	planOps    *prometheus.CounterVec
	cases      *prometheus.CounterVec
	reconciles *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "reconciler",
			Name:      "decisions_total",
			Help:      "Version transitions decided, by transition and action.",
		}, []string{"transition", "action"}),
		planOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "reconciler",
			Name:      "plan_operations_total",
			Help:      "Remote test plan operations, by operation and result.",
		}, []string{"operation", "result"}),
		cases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "reconciler",
			Name:      "test_cases_total",
			Help:      "Test cases written, by result.",
		}, []string{"result"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "reconciler",
			Name:      "reconciliations_total",
			Help:      "Finished reconciliations, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "reconciler",
			Name:      "reconciliation_duration_seconds",
			Help:      "Wall time of reconciliations.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions, m.planOps, m.cases, m.reconciles, m.duration)
	}
	return m
}

func (m *Metrics) recordDecision(d Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(d.Transition), string(d.Action)).Inc()
}

func (m *Metrics) recordPlanOp(op string, err error) {
	if m == nil {
		return
	}
	m.planOps.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *Metrics) recordCase(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.cases.WithLabelValues("failed").Inc()
		return
	}
	m.cases.WithLabelValues("created").Inc()
}

func (m *Metrics) recordReconcile(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(started).Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
