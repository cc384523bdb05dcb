// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

/*
Package metrics defines the Prometheus collectors exported by Tickguard.

Collectors are package-level promauto variables registered with the default
registry and served by the API at /metrics. Call sites use the RecordX helpers
rather than the collectors directly so label sets stay consistent.

# Detection

  - tickguard_packets_processed_total{direction}
  - tickguard_packet_dispatch_duration_seconds{direction}
  - tickguard_packets_dropped_total{reason}
  - tickguard_violations_total{kind,strategy}
  - tickguard_detector_faults_total{kind,reason}
  - tickguard_connections_active
  - tickguard_tick_current

# Event bus and sinks

  - tickguard_bus_handler_panics_total{event}
  - tickguard_sink_deliveries_total{sink,result}
  - tickguard_sink_delivery_duration_seconds{sink}
  - tickguard_sink_queue_dropped_total{sink}
  - tickguard_circuit_breaker_state{name}

# Ingest and API

  - tickguard_ingest_envelopes_total{kind,result}
  - tickguard_shard_queue_depth{shard}
  - tickguard_api_requests_total{method,route,status}
  - tickguard_api_request_duration_seconds{method,route}
  - tickguard_websocket_clients
*/
package metrics
