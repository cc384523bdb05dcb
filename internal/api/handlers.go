// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/detection"
	"github.com/tomtom215/tickguard/internal/store"
	ws "github.com/tomtom215/tickguard/internal/websocket"
)

// ConnectionRegistry exposes the live connection state.
type ConnectionRegistry interface {
	Count() int
	Snapshots() []detection.ConnectionSnapshot
	Get(id uuid.UUID) (*detection.Connection, bool)
}

// HistoryReader exposes the persisted violation history.
type HistoryReader interface {
	Get(ctx context.Context, id uuid.UUID) (detection.HistoryEntry, error)
	List(ctx context.Context, f store.Filter) ([]detection.HistoryEntry, error)
	Count(ctx context.Context) (int, error)
}

// Handler serves the HTTP endpoints.
type Handler struct {
	connections ConnectionRegistry
	history     HistoryReader
	hub         *ws.Hub
	config      config.ServerConfig
	startTime   time.Time
}

// NewHandler creates a handler. history and hub may be nil, in which case
// their endpoints answer 503.
func NewHandler(connections ConnectionRegistry, history HistoryReader, hub *ws.Hub, cfg config.ServerConfig) *Handler {
	return &Handler{
		connections: connections,
		history:     history,
		hub:         hub,
		config:      cfg,
		startTime:   time.Now(),
	}
}
