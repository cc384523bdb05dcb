// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

/*
Package services adapts Tickguard components to suture.Service.

RunnerService wraps anything with RunWithContext(ctx) error: the ingest
service, the notify dispatcher, the history recorder and the tick clock.
WebSocketHubService is the same adapter with a fixed name for the live feed
hub. HTTPServerService translates http.Server's ListenAndServe/Shutdown pair
into a context-bound Serve with a bounded graceful shutdown.

Each wrapper returns ctx.Err() after cancellation, which suture treats as a
clean stop; any other error triggers a restart with backoff.
*/
package services
