// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Detection core
	PacketsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickguard_packets_processed_total",
			Help: "Total number of packets dispatched to detectors",
		},
		[]string{"direction"},
	)

	PacketDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tickguard_packet_dispatch_duration_seconds",
			Help:    "Time spent running all detectors for one packet",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
		[]string{"direction"},
	)

	PacketsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickguard_packets_dropped_total",
			Help: "Packets dropped before dispatch (closed or unknown connection, full shard)",
		},
		[]string{"reason"},
	)

	ViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickguard_violations_total",
			Help: "Total number of violations reported",
		},
		[]string{"kind", "strategy"},
	)

	DetectorFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickguard_detector_faults_total",
			Help: "Detector errors and panics recovered at the dispatch boundary",
		},
		[]string{"kind", "reason"}, // reason: error, panic
	)

	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tickguard_connections_active",
			Help: "Number of live connections with detector state",
		},
	)

	CurrentTick = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tickguard_tick_current",
			Help: "Current value of the logical tick clock",
		},
	)

	// Event bus and sinks
	BusHandlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickguard_bus_handler_panics_total",
			Help: "Event bus handler panics recovered",
		},
		[]string{"event"},
	)

	SinkDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickguard_sink_deliveries_total",
			Help: "Sink delivery attempts by outcome",
		},
		[]string{"sink", "result"}, // result: success, error, rejected, filtered
	)

	SinkDeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tickguard_sink_delivery_duration_seconds",
			Help:    "Duration of sink deliveries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	SinkQueueDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickguard_sink_queue_dropped_total",
			Help: "Items dropped because a sink queue was full",
		},
		[]string{"sink"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickguard_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Ingest
	IngestEnvelopes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickguard_ingest_envelopes_total",
			Help: "Envelopes received from the packet feed",
		},
		[]string{"kind", "result"},
	)

	ShardQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickguard_shard_queue_depth",
			Help: "Envelopes waiting in each shard queue",
		},
		[]string{"shard"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickguard_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tickguard_api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tickguard_websocket_clients",
			Help: "Connected live feed clients",
		},
	)
)

// RecordDispatch records one packet dispatch.
func RecordDispatch(direction string, duration time.Duration) {
	PacketsProcessed.WithLabelValues(direction).Inc()
	PacketDispatchDuration.WithLabelValues(direction).Observe(duration.Seconds())
}

// RecordDroppedPacket records a packet that never reached the detectors.
func RecordDroppedPacket(reason string) {
	PacketsDropped.WithLabelValues(reason).Inc()
}

// RecordViolation records one reported violation.
func RecordViolation(kind, strategy string) {
	ViolationsTotal.WithLabelValues(kind, strategy).Inc()
}

// RecordDetectorFault records a recovered detector error or panic.
func RecordDetectorFault(kind string, panicked bool) {
	reason := "error"
	if panicked {
		reason = "panic"
	}
	DetectorFaults.WithLabelValues(kind, reason).Inc()
}

// RecordSinkDelivery records one sink delivery attempt.
func RecordSinkDelivery(sink, result string, duration time.Duration) {
	SinkDeliveries.WithLabelValues(sink, result).Inc()
	if duration > 0 {
		SinkDeliveryDuration.WithLabelValues(sink).Observe(duration.Seconds())
	}
}

// RecordSinkDropped records an item dropped by a full sink queue.
func RecordSinkDropped(sink string) {
	SinkQueueDropped.WithLabelValues(sink).Inc()
}

// RecordCircuitBreakerState records a breaker state transition.
// state is 0 for closed, 1 for half-open and 2 for open.
func RecordCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordIngestEnvelope records an envelope received from the feed.
func RecordIngestEnvelope(kind, result string) {
	IngestEnvelopes.WithLabelValues(kind, result).Inc()
}

// SetShardQueueDepth records the backlog of one shard.
func SetShardQueueDepth(shard, depth int) {
	ShardQueueDepth.WithLabelValues(strconv.Itoa(shard)).Set(float64(depth))
}

// RecordAPIRequest records an API request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
