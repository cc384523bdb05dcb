// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/tickguard/internal/detection"
	"github.com/tomtom215/tickguard/internal/logging"
	"github.com/tomtom215/tickguard/internal/store"
	"github.com/tomtom215/tickguard/internal/validation"
	ws "github.com/tomtom215/tickguard/internal/websocket"
)

// ViolationsRequest holds the query parameters of GET /api/v1/violations.
type ViolationsRequest struct {
	ConnectionID string `query:"connection_id" validate:"omitempty,uuid"`
	Username     string `query:"username" validate:"omitempty,max=16"`
	Kind         string `query:"kind" validate:"omitempty,detection_kind"`
	MinStrategy  string `query:"min_strategy" validate:"omitempty,strategy"`
	Since        string `query:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Until        string `query:"until" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Limit        int    `query:"limit" validate:"min=1,max=1000"`
}

func parseViolationsRequest(r *http.Request) (ViolationsRequest, bool) {
	q := r.URL.Query()
	req := ViolationsRequest{
		ConnectionID: q.Get("connection_id"),
		Username:     q.Get("username"),
		Kind:         q.Get("kind"),
		MinStrategy:  q.Get("min_strategy"),
		Since:        q.Get("since"),
		Until:        q.Get("until"),
		Limit:        store.DefaultListLimit,
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, false
		}
		req.Limit = n
	}
	return req, true
}

// Filter converts a validated request into a store filter.
func (req ViolationsRequest) Filter() store.Filter {
	f := store.Filter{
		Username: req.Username,
		Kind:     detection.Kind(req.Kind),
		Limit:    req.Limit,
	}
	if req.ConnectionID != "" {
		f.ConnectionID = uuid.MustParse(req.ConnectionID)
	}
	if req.MinStrategy != "" {
		f.MinStrategy, _ = detection.ParseStrategy(req.MinStrategy)
	}
	if req.Since != "" {
		f.Since, _ = time.Parse(time.RFC3339, req.Since)
	}
	if req.Until != "" {
		f.Until, _ = time.Parse(time.RFC3339, req.Until)
	}
	return f
}

// Connections lists every live connection, ordered by join time.
func (h *Handler) Connections(w http.ResponseWriter, _ *http.Request) {
	snaps := h.connections.Snapshots()
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].JoinedAt.Before(snaps[j].JoinedAt)
	})
	n := len(snaps)
	respondData(w, snaps, &n)
}

// Connection returns a single live connection.
func (h *Handler) Connection(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidID, "Invalid connection ID", nil)
		return
	}
	conn, ok := h.connections.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, CodeNotFound, "Connection not found", nil)
		return
	}
	respondData(w, conn.Snapshot(), nil)
}

// Violations lists violation history matching the query parameters.
func (h *Handler) Violations(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, CodeServiceUnavailable, "History storage disabled", nil)
		return
	}
	req, ok := parseViolationsRequest(r)
	if !ok {
		respondError(w, http.StatusBadRequest, validation.CodeValidation, "limit must be an integer", nil)
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	entries, err := h.history.List(r.Context(), req.Filter())
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeStorageError, "Failed to list violations", err)
		return
	}
	n := len(entries)
	respondData(w, entries, &n)
}

// Violation returns a single history entry by ID.
func (h *Handler) Violation(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, CodeServiceUnavailable, "History storage disabled", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidID, "Invalid violation ID", nil)
		return
	}
	entry, err := h.history.Get(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, "Violation not found", nil)
	case err != nil:
		respondError(w, http.StatusInternalServerError, CodeStorageError, "Failed to read violation", err)
	default:
		respondData(w, entry, nil)
	}
}

// WebSocket upgrades the request and registers the client with the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, CodeServiceUnavailable, "Live feed disabled", nil)
		return
	}

	upgrader := gorillaws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}

// checkOrigin allows same-host requests, a wildcard, or any configured
// origin. Requests without an Origin header come from non-browser clients.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	for _, allowed := range h.config.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
	return false
}
