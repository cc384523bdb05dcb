// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

/*
Package api provides the HTTP surface of Tickguard on a chi router.

Routes:

	GET /healthz                     liveness with connection and client counts
	GET /metrics                     Prometheus exposition
	GET /api/v1/connections          snapshots of every live connection
	GET /api/v1/connections/{id}     snapshot of one connection
	GET /api/v1/violations           violation history, newest first
	GET /api/v1/violations/{id}      one history entry
	GET /ws                          live violation and lifecycle feed

Every JSON response uses the same envelope:

	{"status":"success","data":...,"metadata":{"timestamp":"..."}}
	{"status":"error","data":null,"metadata":{...},"error":{"code":"NOT_FOUND","message":"..."}}

History query parameters are validated with go-playground/validator through
internal/validation. The /api/v1 routes are rate limited per client IP with
go-chi/httprate. CORS uses go-chi/cors. Each request is timed into the
tickguard_api_request_* metrics by route pattern.
*/
package api
