package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts task outcomes and durations per worker and kind.
type Metrics struct {
	completed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		completed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "indy",
			Subsystem: "worker",
			Name:      "tasks_total",
			Help:      "Terminal task outcomes by worker, kind and status.",
		}, []string{"worker", "task", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "indy",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "Wall-clock task execution time.",
			Buckets:   []float64{0.5, 1, 30, 60, 300, 600},
		}, []string{"worker", "task"}),
	}
}

func (m *Metrics) Observe(workerID, kind, status string, seconds float64) {
	m.completed.WithLabelValues(workerID, kind, status).Inc()
	m.duration.WithLabelValues(workerID, kind).Observe(seconds)
}
