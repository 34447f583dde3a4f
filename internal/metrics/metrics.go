// Package metrics holds the Prometheus collectors shared by the viewer and
// the tracker bridge. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	FetchesTotal      *prometheus.CounterVec
	FetchDuration     prometheus.Histogram
	TrackingEvents    *prometheus.CounterVec
	StateTransitions  *prometheus.CounterVec
	DiscardedResults  prometheus.Counter
	BroadcastClients  prometheus.Gauge
	BroadcastMessages *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memelens_fetches_total",
			Help: "Image fetches by outcome (ok, transport, response, decode)",
		},
		[]string{"outcome"},
	)

	m.FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "memelens_fetch_duration_seconds",
			Help:    "Duration of image fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.TrackingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memelens_tracking_events_total",
			Help: "Tracking status events handled, by status",
		},
		[]string{"status"},
	)

	m.StateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memelens_state_transitions_total",
			Help: "Display controller state transitions",
		},
		[]string{"from", "to"},
	)

	m.DiscardedResults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "memelens_fetch_results_discarded_total",
			Help: "Fetch results dropped because the sighting they belonged to ended",
		},
	)

	m.BroadcastClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "memelens_tracker_clients",
			Help: "Connected websocket clients",
		},
	)

	m.BroadcastMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memelens_tracker_messages_total",
			Help: "Websocket messages broadcast, by type",
		},
		[]string{"type"},
	)

	m.registry.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.TrackingEvents,
		m.StateTransitions,
		m.DiscardedResults,
		m.BroadcastClients,
		m.BroadcastMessages,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) ObserveFetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

func (m *Metrics) TrackEvent(status string) {
	if m == nil {
		return
	}
	m.TrackingEvents.WithLabelValues(status).Inc()
}

func (m *Metrics) TrackTransition(from, to string) {
	if m == nil {
		return
	}
	m.StateTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) TrackDiscard() {
	if m == nil {
		return
	}
	m.DiscardedResults.Inc()
}

func (m *Metrics) SetClients(n int) {
	if m == nil {
		return
	}
	m.BroadcastClients.Set(float64(n))
}

func (m *Metrics) TrackBroadcast(msgType string) {
	if m == nil {
		return
	}
	m.BroadcastMessages.WithLabelValues(msgType).Inc()
}

// Serve exposes /metrics on addr. It blocks like http.ListenAndServe.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
