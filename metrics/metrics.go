// Package metrics exposes the engine's prometheus collectors. A nil *Metrics is valid
// and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "league_engine"

type Metrics struct {
	registry *prometheus.Registry

	transitions       *prometheus.CounterVec
	schedules         *prometheus.CounterVec
	generatedMatches  prometheus.Counter
	playoffs          *prometheus.CounterVec
	bulkApprovals     *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_transitions_total",
			Help:      "Match lifecycle actions by action and outcome.",
		}, []string{"action", "outcome"}),
		schedules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_operations_total",
			Help:      "Schedule generation and clearing operations by outcome.",
		}, []string{"operation", "outcome"}),
		generatedMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generated_matches_total",
			Help:      "Round-robin matches persisted by schedule generation.",
		}),
		playoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playoff_events_total",
			Help:      "Playoff orchestration events.",
		}, []string{"event"}),
		bulkApprovals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_approval_matches_total",
			Help:      "Matches handled by bulk approval by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification dispatch results.",
		}, []string{"outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions,
		m.schedules,
		m.generatedMatches,
		m.playoffs,
		m.bulkApprovals,
		m.notifications,
		m.operationDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) MatchTransition(action string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, outcome(err)).Inc()
}

func (m *Metrics) ScheduleOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.schedules.WithLabelValues(operation, outcome(err)).Inc()
}

func (m *Metrics) MatchesGenerated(n int) {
	if m == nil {
		return
	}
	m.generatedMatches.Add(float64(n))
}

func (m *Metrics) PlayoffEvent(event string) {
	if m == nil {
		return
	}
	m.playoffs.WithLabelValues(event).Inc()
}

func (m *Metrics) BulkApproval(successful, failed int) {
	if m == nil {
		return
	}
	m.bulkApprovals.WithLabelValues("ok").Add(float64(successful))
	m.bulkApprovals.WithLabelValues("error").Add(float64(failed))
}

func (m *Metrics) NotificationPublished() {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues("published").Inc()
}

func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues("failed").Inc()
}

func (m *Metrics) NotificationDropped() {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues("dropped").Inc()
}

// ObserveDuration is meant to be deferred: defer m.ObserveDuration("op", time.Now()).
func (m *Metrics) ObserveDuration(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
