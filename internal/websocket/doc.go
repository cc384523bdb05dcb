// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

/*
Package websocket streams detection activity to dashboard clients.

The Hub subscribes to the detection event bus and broadcasts three message
types as JSON:

	{"type": "violation",         "data": detection.ViolationRecord}
	{"type": "connection_opened", "data": detection.ConnectionInfo}
	{"type": "connection_closed", "data": ConnectionClosedData}

Clients may send {"type": "ping"} and receive {"type": "pong"}. A client can
narrow the violation stream by sending

	{"type": "subscribe", "data": {"min_strategy": "kick"}}

Bus handlers only enqueue onto the hub's broadcast channel; a full channel
drops the message rather than stalling detection. Slow clients whose send
buffer fills are disconnected.

Clients are tracked with monotonically increasing IDs and served in ID order
so delivery order is reproducible in tests.
*/
package websocket
