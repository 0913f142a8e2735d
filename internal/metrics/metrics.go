package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Turn metrics
	TurnsTotal   *prometheus.CounterVec
	TurnDuration *prometheus.HistogramVec

	// Guard metrics
	GuardOverridesTotal *prometheus.CounterVec

	// Effect metrics
	EffectFailuresTotal *prometheus.CounterVec

	// Session metrics
	SessionsStartedTotal *prometheus.CounterVec

	// Voice metrics
	SynthesisFallbacksTotal prometheus.Counter
	SynthesisFailuresTotal  prometheus.Counter
	EmptyTranscriptsTotal   prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		// Turn metrics
		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turns_total",
				Help: "Total number of conversation turns",
			},
			[]string{"variant", "status"},
		),
		TurnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "turn_duration_seconds",
				Help:    "Duration of conversation turns in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"variant"},
		),

		// Guard metrics
		GuardOverridesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guard_overrides_total",
				Help: "Total number of guard overrides of resolver proposals",
			},
			[]string{"variant", "reason"},
		),

		// Effect metrics
		EffectFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "effect_failures_total",
				Help: "Total number of best-effort effect failures",
			},
			[]string{"action"},
		),

		// Session metrics
		SessionsStartedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessions_started_total",
				Help: "Total number of sessions started",
			},
			[]string{"variant"},
		),

		// Voice metrics
		SynthesisFallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "synthesis_fallbacks_total",
				Help: "Total number of synthesis retries with the fallback voice",
			},
		),
		SynthesisFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "synthesis_failures_total",
				Help: "Total number of turns degraded to text-only replies",
			},
		),
		EmptyTranscriptsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "empty_transcripts_total",
				Help: "Total number of turns rejected for silence",
			},
		),
	}

	// Register all metrics
	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.TurnsTotal)
	m.registry.MustRegister(m.TurnDuration)
	m.registry.MustRegister(m.GuardOverridesTotal)
	m.registry.MustRegister(m.EffectFailuresTotal)
	m.registry.MustRegister(m.SessionsStartedTotal)
	m.registry.MustRegister(m.SynthesisFallbacksTotal)
	m.registry.MustRegister(m.SynthesisFailuresTotal)
	m.registry.MustRegister(m.EmptyTranscriptsTotal)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
