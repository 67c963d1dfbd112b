// Package metrics exposes Prometheus collectors fed by the runtime lifecycle hooks.
package metrics

import (
	"context"
	"net/http"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the conversation collectors.
type Metrics struct {
	registry *prometheus.Registry

	NodeVisits       *prometheus.CounterVec
	Turns            *prometheus.CounterVec
	ExecutorDuration *prometheus.HistogramVec
	ExecutorErrors   *prometheus.CounterVec
	SessionsEnded    *prometheus.CounterVec
}

// New creates the collectors on a private registry, alongside the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tendril_node_visits_total",
				Help: "Total number of node visits",
			},
			[]string{"bot_id", "node_id"},
		),
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tendril_turns_total",
				Help: "Conversation turns served, by response type",
			},
			[]string{"bot_id", "type"},
		),
		ExecutorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tendril_executor_duration_seconds",
				Help:    "Duration of executor runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"executor"},
		),
		ExecutorErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tendril_executor_errors_total",
				Help: "Failed executor runs (api errors, rejected input)",
			},
			[]string{"executor"},
		),
		SessionsEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tendril_sessions_ended_total",
				Help: "Sessions that reached the ended state",
			},
			[]string{"bot_id"},
		),
	}
	m.registry.MustRegister(
		m.NodeVisits, m.Turns, m.ExecutorDuration, m.ExecutorErrors, m.SessionsEnded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTurn counts a rendered turn.
func (m *Metrics) ObserveTurn(botID string, t domain.TurnType) {
	m.Turns.WithLabelValues(botID, string(t)).Inc()
}

// Hooks returns lifecycle hooks recording into the collectors.
// next, when set, is called after recording so hooks can be chained.
func (m *Metrics) Hooks(next domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.BotID, e.NodeID).Inc()
			if next.OnNodeEnter != nil {
				next.OnNodeEnter(ctx, e)
			}
		},
		OnNodeLeave: next.OnNodeLeave,
		OnExecutor: func(ctx context.Context, e *domain.ExecutorEvent) {
			if e.Executor == domain.ExecutorAPI {
				m.ExecutorDuration.WithLabelValues(string(e.Executor)).Observe(e.Duration.Seconds())
			}
			if e.IsError {
				m.ExecutorErrors.WithLabelValues(string(e.Executor)).Inc()
			}
			if next.OnExecutor != nil {
				next.OnExecutor(ctx, e)
			}
		},
		OnSessionEnd: func(ctx context.Context, e *domain.NodeEvent) {
			m.SessionsEnded.WithLabelValues(e.BotID).Inc()
			if next.OnSessionEnd != nil {
				next.OnSessionEnd(ctx, e)
			}
		},
	}
}
