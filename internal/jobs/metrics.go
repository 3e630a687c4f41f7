package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the poller's prometheus collectors.
type Metrics struct {
	Started   *prometheus.CounterVec
	Completed *prometheus.CounterVec
	Polls     prometheus.Counter
	Active    prometheus.Gauge
}

// NewMetrics registers the collectors on reg. A nil reg yields working but
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Started: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "biome_agent",
			Name:      "jobs_started_total",
			Help:      "Remote jobs whose poller was started, by kind.",
		}, []string{"kind"}),
		Completed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "biome_agent",
			Name:      "jobs_completed_total",
			Help:      "Pollers that delivered their final notification, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Polls: f.NewCounter(prometheus.CounterOpts{
			Namespace: "biome_agent",
			Name:      "job_status_polls_total",
			Help:      "Status requests issued by pollers.",
		}),
		Active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "biome_agent",
			Name:      "pollers_active",
			Help:      "Pollers currently waiting on a remote job.",
		}),
	}
}
