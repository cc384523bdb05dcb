// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

// Package detection is the per-connection anomaly detection core.
//
// Architecture:
//
//	transport -> Manager.HandleInbound/HandleOutbound
//	               |
//	               v
//	        Connection routing table (by packet type, registration order)
//	               |
//	               v
//	        Detector.HandleInbound/HandleOutbound --Context.Report--> Pipeline
//	                                                                    |
//	                                                                    v
//	                                                             eventbus.Bus
//
// Each live connection owns one Connection holding its identity, rate-limit
// counters, tick markers, scores and one instance of every detector in the
// Catalog. All of it is confined to the goroutine processing that
// connection's packets; the ingest layer shards connections so that exactly
// one goroutine ever does. The per-connection mutex exists so that teardown
// and API snapshots cannot interleave with a dispatch, not for throughput.
//
// Detectors:
//   - Rate limit: leaking packet allowance plus book, craft and drop sub-limits
//   - Timing balance: damped integrator over movement packet cadence
//   - Post order: actions sent after movement without a round-trip confirmation
//   - Sign bounds: decodes sign updates and bounds their line lengths
//
// Detectors read thresholds from config.Values on every call, under
// detection.<kind>.*, and fall back to their DefaultXConfig values. A detector
// that returns an error or panics is recovered at the dispatch boundary; when
// detection.malformed_is_violation is set the fault is reported as a
// ban-severity violation, since malformed client input is itself suspicious.
//
// The pipeline only announces. Kicks and bans are executed by whatever
// subscribes to the violation event.
package detection
