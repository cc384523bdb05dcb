// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/eventbus"
	"github.com/tomtom215/tickguard/internal/logging"
	"github.com/tomtom215/tickguard/internal/protocol"
)

// Event kinds published by the detection core.
const (
	EventViolation           eventbus.Kind = "violation"
	EventHistoryEntryCreated eventbus.Kind = "history_entry_created"
	EventConnectionOpened    eventbus.Kind = "connection_opened"
	EventConnectionClosed    eventbus.Kind = "connection_closed"
)

// ViolationEvent announces a new violation.
type ViolationEvent struct {
	Violation Violation
}

func (ViolationEvent) EventKind() eventbus.Kind { return EventViolation }

// HistoryEntry is the informational record of a violation kept by history sinks.
type HistoryEntry struct {
	ID            uuid.UUID   `json:"id"`
	ViolationID   uuid.UUID   `json:"violation_id"`
	ConnectionID  uuid.UUID   `json:"connection_id"`
	Username      string      `json:"username"`
	Kind          Kind        `json:"kind"`
	Description   string      `json:"description"`
	Strategy      Strategy    `json:"strategy"`
	Label         string      `json:"label"`
	Debug         []DebugPair `json:"debug,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
	ClientVersion int32       `json:"client_version"`
	LatencyMillis int64       `json:"latency_ms"`
}

// HistoryEntryCreated announces a history entry for a violation.
type HistoryEntryCreated struct {
	Entry HistoryEntry
}

func (HistoryEntryCreated) EventKind() eventbus.Kind { return EventHistoryEntryCreated }

// ConnectionOpened announces a new connection.
type ConnectionOpened struct {
	Info ConnectionInfo
}

func (ConnectionOpened) EventKind() eventbus.Kind { return EventConnectionOpened }

// ConnectionClosed announces a torn-down connection with its final scores.
type ConnectionClosed struct {
	ID       uuid.UUID
	Username string
	ClosedAt time.Time
	Scores   map[Kind]float64
}

func (ConnectionClosed) EventKind() eventbus.Kind { return EventConnectionClosed }

// newHistoryEntry builds the history entry for v.
func newHistoryEntry(v Violation) HistoryEntry {
	return HistoryEntry{
		ID:            uuid.New(),
		ViolationID:   v.id,
		ConnectionID:  v.connectionID,
		Username:      v.username,
		Kind:          v.kind,
		Description:   v.description,
		Strategy:      v.strategy,
		Label:         v.strategy.HistoryLabel(),
		Debug:         v.Debug(),
		Timestamp:     v.createdAt,
		ClientVersion: int32(v.version),
		LatencyMillis: v.latency.Milliseconds(),
	}
}

// SubscribeLogger logs every violation and connection lifecycle event at
// the highest priority, before any other consumer sees it.
func SubscribeLogger(bus *eventbus.Bus) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.On(bus, eventbus.Highest, func(e ViolationEvent) {
			v := e.Violation
			ev := logging.Warn()
			if v.strategy.AtLeast(StrategyKick) {
				ev = logging.Error()
			}
			ev.Str("connection_id", v.connectionID.String()).
				Str("username", v.username).
				Str("detector", string(v.kind)).
				Str("strategy", v.strategy.String()).
				Float64("score", v.score).
				Str("packet", string(v.packet)).
				Msgf("%s %s: %s", v.username, v.strategy.Verb(), v.description)
		}),
		eventbus.On(bus, eventbus.Highest, func(e ConnectionOpened) {
			logging.Info().
				Str("connection_id", e.Info.ID.String()).
				Str("username", e.Info.Username).
				Str("version", e.Info.Version.String()).
				Msg("connection opened")
		}),
		eventbus.On(bus, eventbus.Highest, func(e ConnectionClosed) {
			logging.Info().
				Str("connection_id", e.ID.String()).
				Str("username", e.Username).
				Msg("connection closed")
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// packetType is a helper for logging a possibly nil packet.
func packetType(pk *protocol.Packet) protocol.Type {
	if pk == nil {
		return ""
	}
	return pk.Type
}
