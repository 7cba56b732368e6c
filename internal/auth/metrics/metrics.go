// Package metrics exposes security pipeline outcomes to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/tollgate/pkg/security"
)

const namespace = "tollgate"

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
	limited  *prometheus.CounterVec
}

var _ security.Observer = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "security",
			Name:      "outcomes_total",
			Help:      "Requests handled by each security stage, by result.",
		}, []string{"stage", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "security",
			Name:      "stage_duration_seconds",
			Help:      "Time spent authenticating in each security stage.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"stage"}),
		limited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected with 429, by limiter.",
		}, []string{"limiter"}),
	}

	m.registry.MustRegister(
		m.outcomes,
		m.duration,
		m.limited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveStage counts one result. Bypasses carry no duration.
func (m *Metrics) ObserveStage(stage, result string, elapsed time.Duration) {
	m.outcomes.WithLabelValues(stage, result).Inc()
	if result != security.ResultBypassed {
		m.duration.WithLabelValues(stage).Observe(elapsed.Seconds())
	}
}

// RateLimited counts one rejected request.
func (m *Metrics) RateLimited(limiter string) {
	m.limited.WithLabelValues(limiter).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
