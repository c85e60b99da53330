package importtask

import (
	"github.com/prometheus/client_golang/prometheus"

	"testplan/internal/api"
)

// Metrics tracks task throughput. A nil *Metrics records nothing.
type Metrics struct {
	submitted prometheus.Counter
	finished  *prometheus.CounterVec
	running   prometheus.Gauge
	queued    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "testplan",
			Subsystem: "imports",
			Name:      "submitted_total",
			Help:      "Import tasks accepted for execution.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "testplan",
			Subsystem: "imports",
			Name:      "finished_total",
			Help:      "Import tasks that reached a terminal state, by status.",
		}, []string{"status"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "testplan",
			Subsystem: "imports",
			Name:      "running",
			Help:      "Import tasks currently reconciling.",
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "testplan",
			Subsystem: "imports",
			Name:      "queued",
			Help:      "Import tasks waiting for their project lock or a free slot.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.submitted, m.finished, m.running, m.queued)
	}
	return m
}

func (m *Metrics) taskSubmitted() {
	if m == nil {
		return
	}
	m.submitted.Inc()
	m.queued.Inc()
}

func (m *Metrics) taskStarted() {
	if m == nil {
		return
	}
	m.queued.Dec()
	m.running.Inc()
}

func (m *Metrics) taskFinished(status api.TaskStatus, started bool) {
	if m == nil {
		return
	}
	if started {
		m.running.Dec()
	} else {
		m.queued.Dec()
	}
	m.finished.WithLabelValues(string(status)).Inc()
}
