// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package services

// WebSocketHubService wraps the live-feed hub as a supervised service.
// It is a RunnerService with a fixed name.
type WebSocketHubService struct {
	RunnerService
}

// NewWebSocketHubService creates a hub service wrapper.
func NewWebSocketHubService(hub Runner) *WebSocketHubService {
	return &WebSocketHubService{RunnerService{runner: hub, name: "websocket-hub"}}
}
