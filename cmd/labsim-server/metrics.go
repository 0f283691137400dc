package main

import (
	"context"
	"net/http"

	"github.com/chemverse/labsim/internal/lab"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the server's prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	PoursCompleted prometheus.Counter
	ReactionsFired prometheus.Counter
	TicksServed    prometheus.Counter
}

// NewMetrics creates the collectors and registers gauges that observe the
// session manager directly.
func NewMetrics(manager *lab.SessionManager) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PoursCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labsim_pours_completed_total",
			Help: "Number of completed pour gestures across all sessions.",
		}),
		ReactionsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labsim_reactions_fired_total",
			Help: "Number of reactions fired across all sessions.",
		}),
		TicksServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labsim_manual_ticks_total",
			Help: "Number of manually requested session ticks.",
		}),
	}

	sessions := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "labsim_sessions",
		Help: "Number of live sessions.",
	}, func() float64 {
		return float64(len(manager.ListSessions()))
	})

	particles := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "labsim_live_particles",
		Help: "Live liquid particles across all sessions.",
	}, func() float64 {
		total := 0
		for _, id := range manager.ListSessions() {
			if s, ok := manager.GetSession(id); ok {
				// Session.LiveParticles holds the session mutex, so the
				// scrape cannot race an auto-running frame loop.
				total += s.LiveParticles()
			}
		}
		return float64(total)
	})

	m.registry.MustRegister(m.PoursCompleted, m.ReactionsFired, m.TicksServed, sessions, particles)
	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// metricsNotifier counts lab events as they are emitted. It is registered
// with the notification manager like any other notifier.
type metricsNotifier struct {
	metrics *Metrics
}

func (mn *metricsNotifier) ID() string   { return "metrics" }
func (mn *metricsNotifier) Type() string { return "metrics" }

func (mn *metricsNotifier) Notify(_ context.Context, event lab.LabEvent) error {
	switch event.Type {
	case lab.EventPourCompleted:
		mn.metrics.PoursCompleted.Inc()
	case lab.EventReactionFired:
		mn.metrics.ReactionsFired.Inc()
	}
	return nil
}

func (mn *metricsNotifier) Close() error { return nil }
