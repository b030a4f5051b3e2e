package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the server's Prometheus collectors.
type metrics struct {
	registry *prometheus.Registry

	steps        *prometheus.CounterVec
	stepDuration prometheus.Histogram
	sessions     prometheus.Counter
	errors       *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weft",
			Name:      "steps_total",
			Help:      "Flow steps executed, by resulting action.",
		}, []string{"action"}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weft",
			Name:      "step_duration_seconds",
			Help:      "Wall time of one flow step, including language-service calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weft",
			Name:      "sessions_started_total",
			Help:      "Sessions created.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weft",
			Name:      "request_errors_total",
			Help:      "Requests that ended in an error response, by route.",
		}, []string{"route"}),
	}

	m.registry.MustRegister(m.steps, m.stepDuration, m.sessions, m.errors)
	return m
}
