// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/eventbus"
	"github.com/tomtom215/tickguard/internal/metrics"
	"github.com/tomtom215/tickguard/internal/protocol"
)

// Pipeline turns detector reports into Violations and announces them.
// It never executes a mitigation.
type Pipeline struct {
	bus *eventbus.Bus
	now func() time.Time
}

// NewPipeline creates a pipeline publishing on bus.
func NewPipeline(bus *eventbus.Bus) *Pipeline {
	return &Pipeline{bus: bus, now: time.Now}
}

// Report increments the score of kind on conn, builds the Violation and
// publishes ViolationEvent followed by HistoryEntryCreated. It must be called
// from the goroutine processing conn.
func (p *Pipeline) Report(conn *Connection, kind Kind, tick uint64, packet protocol.Type, r Report) Violation {
	if r.Description == "" {
		r.Description = DefaultDescription
	}
	if r.Strategy == StrategyUnset {
		r.Strategy = StrategyMitigate
	}

	conn.scores[kind]++
	conn.violationsTotal++

	v := Violation{
		id:           uuid.New(),
		kind:         kind,
		connectionID: conn.ID(),
		username:     conn.Username(),
		description:  r.Description,
		debug:        append([]DebugPair(nil), r.Debug...),
		strategy:     r.Strategy,
		score:        conn.scores[kind],
		tick:         tick,
		packet:       packet,
		createdAt:    p.now(),
		version:      conn.Version(),
		latency:      conn.Latency(),
	}

	metrics.RecordViolation(string(kind), v.strategy.String())
	if p.bus != nil {
		p.bus.Publish(ViolationEvent{Violation: v})
		p.bus.Publish(HistoryEntryCreated{Entry: newHistoryEntry(v)})
	}
	return v
}
