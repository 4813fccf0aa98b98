// Package metrics defines all Prometheus metrics for relaykit.
// All metrics use the "relaykit_" prefix.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "relaykit"

// --- Option 82 Decode Metrics ---

var (
	// AgentInfoDecodes counts Option 82 decode attempts by result.
	AgentInfoDecodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "agent_info_decodes_total",
		Help:      "Total Option 82 decode attempts, by result (ok, format_error).",
	}, []string{"result"})

	// AgentInfoFormats counts recognized identifier formats per field.
	AgentInfoFormats = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "agent_info_formats_total",
		Help:      "Decoded circuit-id/remote-id occurrences, by field and format.",
	}, []string{"field", "format"})
)

// --- Route Encoding Metrics ---

var (
	// RoutesEncoded counts successfully encoded classless route sets.
	RoutesEncoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "routes_encoded_total",
		Help:      "Total classless static route option values encoded.",
	})

	// RouteEncodeErrors counts route encodes rejected for bad addresses.
	RouteEncodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_encode_errors_total",
		Help:      "Total route encodes that failed address validation.",
	})
)

// --- RADIUS Authorization Metrics ---

var (
	// AuthzRequests counts RADIUS authorization attempts by response code.
	AuthzRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_requests_total",
		Help:      "Total RADIUS authorization attempts, by response code.",
	}, []string{"code"})

	// AuthzDuration tracks RADIUS exchange latency.
	AuthzDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "authz_duration_seconds",
		Help:      "RADIUS authorization exchange duration in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	})
)

// --- Observation Store Metrics ---

var (
	// ObservationsRecorded counts relay observations written to the store.
	ObservationsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "observations_recorded_total",
		Help:      "Total relay agent observations recorded.",
	})

	// SwitchesTracked is a gauge of distinct relay agents in the store.
	SwitchesTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "switches_tracked",
		Help:      "Number of distinct relay agents (switches) in the store.",
	})
)

// --- Event Feed Metrics ---

var (
	// EventsReceived counts observation events read from the feed socket.
	EventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_received_total",
		Help:      "Total observation events received on the feed socket.",
	})

	// EventErrors counts malformed or undecodable feed events.
	EventErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_errors_total",
		Help:      "Total feed events rejected, by error type.",
	}, []string{"type"})
)
