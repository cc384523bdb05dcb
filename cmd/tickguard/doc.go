// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

/*
Command tickguard runs the behavioral anomaly detector as a standalone
service.

Game servers (or a protocol proxy in front of them) publish connection
envelopes to the ingest topic. Tickguard replays each packet through the
per-connection detectors, publishes corrective packets to the outbound topic
and kick/ban decisions to the enforcement topic, and fans violations out to
the history store, the notifiers and the live WebSocket feed.

# Process Layout

	tickguard
	├── data-layer
	│   ├── tick-clock        logical tick source
	│   └── history-recorder  BadgerDB persistence with TTL retention
	├── messaging-layer
	│   ├── ingest            watermill subscriber, sharded per connection
	│   ├── notify            webhook / Discord dispatcher
	│   └── websocket-hub     live feed
	└── api-layer
	    └── http-server       chi REST API, /metrics, /ws

# Configuration

Configuration is layered with Koanf v2 (highest priority wins):

  - Environment variables with the TICKGUARD_ prefix, using a double
    underscore as the key separator (TICKGUARD_INGEST__SOURCE=nats)
  - tickguard.yaml (or the file named by TICKGUARD_CONFIG)
  - Built-in defaults

Detector thresholds under detection.<kind>.* are read live; editing the
config file changes them without a restart.

# Example

Run against an external NATS server:

	export TICKGUARD_INGEST__SOURCE=nats
	export TICKGUARD_INGEST__NATS_URL=nats://nats:4222
	export TICKGUARD_STORAGE__PATH=/var/lib/tickguard
	./tickguard

Run self-contained with an embedded NATS server and in-memory history:

	export TICKGUARD_INGEST__SOURCE=nats
	export TICKGUARD_INGEST__EMBEDDED_NATS=true
	export TICKGUARD_STORAGE__IN_MEMORY=true
	./tickguard

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops every
service, open connections are closed through the ingest service, and the
history store and transport are closed last.
*/
package main
