// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

/*
Package supervisor runs Tickguard's long-lived services under a suture v4
supervision tree.

Every background component exposes RunWithContext(ctx) error and is wrapped
by one of the adapters in the services subpackage, then added to a layer:

	tree, _ := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewRunnerService("history-recorder", recorder))
	tree.AddMessagingService(services.NewRunnerService("ingest", ingestService))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err := tree.Serve(ctx)

A service that returns an error is restarted with backoff according to
TreeConfig. Returning ctx.Err() after cancellation is a clean stop.
Supervisor events (failures, backoff, timeouts) are logged through
sutureslog, which bridges suture's event hook onto log/slog. The slog
logger is itself backed by zerolog (see logging.NewSlogLogger).
*/
package supervisor
