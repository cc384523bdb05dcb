// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/eventbus"
	"github.com/tomtom215/tickguard/internal/protocol"
)

func TestPipeline_Report(t *testing.T) {
	bus := eventbus.New()
	rec := record(bus, EventViolation)
	p := NewPipeline(bus)
	conn := newConnection(ConnectionInfo{ID: uuid.New(), Username: "notch", Version: protocol.V1_8})

	first := p.Report(conn, KindPostOrder, 10, protocol.Position, Report{
		Description: "sent block_place after movement",
		Strategy:    StrategyKick,
	})
	second := p.Report(conn, KindPostOrder, 11, protocol.Position, Report{})

	if first.Score() != 1 || second.Score() != 2 {
		t.Errorf("scores = %v, %v, want 1, 2", first.Score(), second.Score())
	}
	if conn.Score(KindPostOrder) != 2 {
		t.Errorf("connection score = %v, want 2", conn.Score(KindPostOrder))
	}
	if first.Strategy() != StrategyKick {
		t.Errorf("strategy = %v, want kick", first.Strategy())
	}
	if second.Strategy() != StrategyMitigate || second.Description() != DefaultDescription {
		t.Errorf("defaults not applied: %v %q", second.Strategy(), second.Description())
	}
	if first.ConnectionID() != conn.ID() || first.Username() != "notch" || first.Version() != protocol.V1_8 {
		t.Errorf("violation identity = %s/%s/%v", first.ConnectionID(), first.Username(), first.Version())
	}
	if first.ID() == second.ID() {
		t.Error("violations share an id")
	}
	if n := len(rec.all()); n != 2 {
		t.Errorf("published = %d, want 2", n)
	}
}

func TestPipeline_NilBus(t *testing.T) {
	conn := newConnection(ConnectionInfo{ID: uuid.New()})
	v := NewPipeline(nil).Report(conn, KindSignBounds, 0, protocol.UpdateSign, Report{Strategy: StrategyBan})
	if v.Strategy() != StrategyBan || conn.Score(KindSignBounds) != 1 {
		t.Errorf("violation = %v score %v", v.Strategy(), conn.Score(KindSignBounds))
	}
}
