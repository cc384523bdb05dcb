// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

/*
Package ingest feeds decoded packet envelopes from the transport into the
detection Manager and publishes what detection produces back out.

# Transport

The transport is a pair of watermill publisher and subscriber. Two sources
are supported:

  - channel: an in-process gochannel, for single-binary deployments and tests
  - nats: core NATS through watermill-nats, optionally against an embedded
    nats-server started by the process itself

JetStream is not used: packet envelopes are only meaningful while the
connection is live, so replay after a restart would be detected as timing
anomalies.

# Envelopes

Each message on the ingest topic carries one JSON Envelope:

	{"kind":"open","connection_id":"...","username":"steve","handle":7,"version":47}
	{"kind":"packet","connection_id":"...","direction":"inbound","packet":{"type":"flying","received_at":"..."}}
	{"kind":"close","connection_id":"..."}

Envelopes that fail to decode cannot be attributed to a connection; they are
logged, counted and acknowledged.

# Ordering

Envelopes are sharded by an FNV-1a hash of the connection ID onto a fixed set
of worker goroutines. All envelopes of one connection are handled by the same
worker in arrival order, so connection state is never touched concurrently.

# Outputs

  - Sender publishes packets requested by detectors (round-trip probes,
    inventory resyncs) to the outbound topic.
  - Announcer publishes kick and ban decisions to the enforcement topic.
*/
package ingest
