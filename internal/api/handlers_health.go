// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the body of GET /healthz.
type HealthStatus struct {
	Status           string  `json:"status"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	Connections      int     `json:"connections"`
	WebSocketClients int     `json:"websocket_clients"`
	HistoryEntries   *int    `json:"history_entries,omitempty"`
}

// Health reports liveness. A failing history store degrades the status but
// still answers 200, since detection keeps running without it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:        "healthy",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Connections:   h.connections.Count(),
	}
	if h.hub != nil {
		status.WebSocketClients = h.hub.GetClientCount()
	}
	if h.history != nil {
		n, err := h.history.Count(r.Context())
		if err != nil {
			status.Status = "degraded"
		} else {
			status.HistoryEntries = &n
		}
	}
	respondData(w, status, nil)
}
