// Package metrics exposes Prometheus instrumentation for plan gating.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "consultbase"

// maxLabelLen is the maximum length for a metric label value
const maxLabelLen = 64

func sanitizeLabel(s string) string {
	if s == "" {
		return "unknown"
	}
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen]
	}
	return s
}

// Gate names recorded by GateRefused
const (
	GateClientLimit = "client_limit"
	GateSeatLimit   = "seat_limit"
	GateOwnerOnly   = "owner_only"
)

// Metrics holds every collector of the service
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	gateRefusals  *prometheus.CounterVec
	featureChecks *prometheus.CounterVec
	planSwitches  *prometheus.CounterVec
	invites       *prometheus.CounterVec
	openSessions  prometheus.Gauge
	streamClients prometheus.Gauge
}

// New creates Metrics registered on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by method and route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		gateRefusals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "entitlement",
				Name:      "refusals_total",
				Help:      "Actions refused by a plan gate, by gate and tier",
			},
			[]string{"gate", "tier"},
		),
		featureChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "entitlement",
				Name:      "feature_checks_total",
				Help:      "Feature flag checks by feature and outcome",
			},
			[]string{"feature", "enabled"},
		),
		planSwitches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "plan",
				Name:      "switches_total",
				Help:      "Plan tier switches by source and target tier",
			},
			[]string{"from", "to"},
		),
		invites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "team",
				Name:      "invites_total",
				Help:      "Team invites by result",
			},
			[]string{"result"},
		),
		openSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "open",
				Help:      "Number of open sessions",
			},
		),
		streamClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "stream_clients",
				Help:      "Number of connected snapshot stream clients",
			},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.gateRefusals,
		m.featureChecks,
		m.planSwitches,
		m.invites,
		m.openSessions,
		m.streamClients,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	route = sanitizeLabel(route)
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// GateRefused records an action refused by a plan gate
func (m *Metrics) GateRefused(gate, tier string) {
	m.gateRefusals.WithLabelValues(sanitizeLabel(gate), sanitizeLabel(tier)).Inc()
}

// FeatureChecked records a feature flag lookup
func (m *Metrics) FeatureChecked(feature string, enabled bool) {
	m.featureChecks.WithLabelValues(sanitizeLabel(feature), strconv.FormatBool(enabled)).Inc()
}

// PlanSwitched records a tier change
func (m *Metrics) PlanSwitched(from, to string) {
	m.planSwitches.WithLabelValues(sanitizeLabel(from), sanitizeLabel(to)).Inc()
}

// Invited records the outcome of an invite ("ok" or the failure reason)
func (m *Metrics) Invited(result string) {
	m.invites.WithLabelValues(sanitizeLabel(result)).Inc()
}

// SessionOpened increments the open session gauge
func (m *Metrics) SessionOpened() {
	m.openSessions.Inc()
}

// SessionClosed decrements the open session gauge
func (m *Metrics) SessionClosed() {
	m.openSessions.Dec()
}

// StreamConnected increments the stream client gauge
func (m *Metrics) StreamConnected() {
	m.streamClients.Inc()
}

// StreamDisconnected decrements the stream client gauge
func (m *Metrics) StreamDisconnected() {
	m.streamClients.Dec()
}
