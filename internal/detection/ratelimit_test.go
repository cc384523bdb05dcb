// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"testing"

	"github.com/tomtom215/tickguard/internal/protocol"
)

func TestRateLimitDetector_AllowanceLeaks(t *testing.T) {
	env := newTestEnv(t, only(KindRateLimit, map[string]any{
		"detection.rate_limit.max_allowance": 10.0,
	}))

	if env.conn.PacketAllowance != 10 {
		t.Fatalf("initial allowance = %v, want 10", env.conn.PacketAllowance)
	}

	for i := range 5 {
		if vs := env.in(t, protocol.ChatMessage, nil, testJoinTime); len(vs) != 0 {
			t.Fatalf("packet %d produced %d violations, want 0", i+1, len(vs))
		}
	}
	if env.conn.PacketAllowance != 5 {
		t.Errorf("allowance = %v, want 5", env.conn.PacketAllowance)
	}
	if env.conn.PacketCount != 5 {
		t.Errorf("count = %v, want 5", env.conn.PacketCount)
	}

	vs := env.in(t, protocol.ChatMessage, nil, testJoinTime)
	if len(vs) != 1 {
		t.Fatalf("violations = %d, want 1", len(vs))
	}
	v := vs[0]
	if v.Strategy() != StrategyKick {
		t.Errorf("strategy = %v, want kick", v.Strategy())
	}
	if got, _ := v.DebugValue("count"); got != "6" {
		t.Errorf("debug count = %q, want 6", got)
	}
	if got, _ := v.DebugValue("allowance"); got != "5" {
		t.Errorf("debug allowance = %q, want 5", got)
	}
	if env.conn.PacketAllowance != 5 {
		t.Errorf("allowance after breach = %v, want 5", env.conn.PacketAllowance)
	}
}

func TestRateLimitDetector_Weights(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		typ    protocol.Type
		sends  int
		want   float64
	}{
		{name: "default weight", typ: protocol.ChatMessage, sends: 4, want: 4},
		{name: "movement counts half", typ: protocol.Position, sends: 4, want: 2},
		{name: "animation counts half", typ: protocol.Animation, sends: 3, want: 1.5},
		{
			name:   "configured weight",
			values: map[string]any{"detection.rate_limit.weights.chat_message": 3.0},
			typ:    protocol.ChatMessage,
			sends:  2,
			want:   6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, only(KindRateLimit, tt.values))
			for range tt.sends {
				env.in(t, tt.typ, nil, testJoinTime)
			}
			if env.conn.PacketCount != tt.want {
				t.Errorf("count = %v, want %v", env.conn.PacketCount, tt.want)
			}
		})
	}
}

func TestRateLimitDetector_Regenerates(t *testing.T) {
	env := newTestEnv(t, only(KindRateLimit, map[string]any{
		"detection.rate_limit.max_allowance":      10.0,
		"detection.rate_limit.allowance_per_tick": 2.0,
		"detection.rate_limit.decay_per_tick":     4.0,
	}))

	for range 6 {
		env.in(t, protocol.ChatMessage, nil, testJoinTime)
	}
	// allowance 5, count 6

	env.advance(1)
	env.in(t, protocol.ChatMessage, nil, testJoinTime)
	// regenerated to allowance 7, count 2, then this packet: count 3, allowance 6
	if env.conn.PacketAllowance != 6 {
		t.Errorf("allowance = %v, want 6", env.conn.PacketAllowance)
	}
	if env.conn.PacketCount != 3 {
		t.Errorf("count = %v, want 3", env.conn.PacketCount)
	}

	env.advance(100)
	env.in(t, protocol.ChatMessage, nil, testJoinTime)
	if env.conn.PacketAllowance != 9 {
		t.Errorf("allowance after idle = %v, want 9 (capped at 10 then spent)", env.conn.PacketAllowance)
	}
	if env.conn.PacketCount != 1 {
		t.Errorf("count after idle = %v, want 1", env.conn.PacketCount)
	}
}

func TestRateLimitDetector_BookEdits(t *testing.T) {
	env := newTestEnv(t, only(KindRateLimit, nil))

	if vs := env.in(t, protocol.EditBook, nil, testJoinTime); len(vs) != 0 {
		t.Fatalf("first edit produced %d violations", len(vs))
	}

	env.advance(5)
	vs := env.in(t, protocol.EditBook, nil, testJoinTime)
	if len(vs) != 1 || vs[0].Strategy() != StrategyKick {
		t.Fatalf("violations = %v, want one kick", vs)
	}
	if got, _ := vs[0].DebugValue("ticks_since"); got != "5" {
		t.Errorf("ticks_since = %q, want 5", got)
	}

	// The breaching edit still moves the marker.
	env.advance(19)
	if vs := env.in(t, protocol.EditBook, nil, testJoinTime); len(vs) != 1 {
		t.Errorf("edit 19 ticks after the previous one: violations = %d, want 1", len(vs))
	}
	env.advance(20)
	if vs := env.in(t, protocol.EditBook, nil, testJoinTime); len(vs) != 0 {
		t.Errorf("edit 20 ticks after the previous one: violations = %d, want 0", len(vs))
	}
}

func TestRateLimitDetector_CraftRequestsResync(t *testing.T) {
	env := newTestEnv(t, only(KindRateLimit, nil))

	env.in(t, protocol.CraftRecipeRequest, nil, testJoinTime)
	if n := env.sender.count(protocol.ServerInventoryResync); n != 0 {
		t.Fatalf("resyncs after first request = %d, want 0", n)
	}

	env.advance(3)
	vs := env.in(t, protocol.CraftRecipeRequest, nil, testJoinTime)
	if len(vs) != 1 || vs[0].Strategy() != StrategyMitigate {
		t.Fatalf("violations = %v, want one mitigate", vs)
	}
	if n := env.sender.count(protocol.ServerInventoryResync); n != 1 {
		t.Errorf("resyncs = %d, want 1", n)
	}
	sent, _ := env.sender.last()
	if sent.conn.ID != env.conn.ID() {
		t.Errorf("resync sent to %s, want %s", sent.conn.ID, env.conn.ID())
	}

	env.advance(10)
	if vs := env.in(t, protocol.CraftRecipeRequest, nil, testJoinTime); len(vs) != 0 {
		t.Errorf("request 10 ticks later: violations = %d, want 0", len(vs))
	}
}

func TestRateLimitDetector_Drops(t *testing.T) {
	env := newTestEnv(t, only(KindRateLimit, nil))
	drop := protocol.Digging{Action: protocol.DiggingDropItem}

	for i := range 20 {
		if vs := env.in(t, protocol.PlayerDigging, drop, testJoinTime); len(vs) != 0 {
			t.Fatalf("drop %d produced %d violations", i+1, len(vs))
		}
	}
	vs := env.in(t, protocol.PlayerDigging, drop, testJoinTime)
	if len(vs) != 1 || vs[0].Strategy() != StrategyKick {
		t.Fatalf("21st drop: violations = %v, want one kick", vs)
	}
	if env.conn.DropsThisTick != 21 {
		t.Errorf("DropsThisTick = %d, want 21", env.conn.DropsThisTick)
	}

	// Digging that is not a drop is not counted.
	env.in(t, protocol.PlayerDigging, protocol.Digging{Action: protocol.DiggingStart}, testJoinTime)
	if env.conn.DropsThisTick != 21 {
		t.Errorf("DropsThisTick after start_digging = %d, want 21", env.conn.DropsThisTick)
	}

	env.advance(1)
	if vs := env.in(t, protocol.PlayerDigging, drop, testJoinTime); len(vs) != 0 {
		t.Errorf("drop on next tick: violations = %d, want 0", len(vs))
	}
	if env.conn.DropsThisTick != 1 {
		t.Errorf("DropsThisTick on next tick = %d, want 1", env.conn.DropsThisTick)
	}
}

func TestRateLimitDetector_MalformedDigging(t *testing.T) {
	env := newTestEnv(t, only(KindRateLimit, nil))

	vs := env.in(t, protocol.PlayerDigging, nil, testJoinTime)
	if len(vs) != 1 {
		t.Fatalf("violations = %d, want 1", len(vs))
	}
	if vs[0].Kind() != KindRateLimit || vs[0].Strategy() != StrategyBan {
		t.Errorf("violation = %s/%s, want rate_limit/ban", vs[0].Kind(), vs[0].Strategy())
	}
	if _, ok := vs[0].DebugValue("error"); !ok {
		t.Error("expected error debug pair")
	}
	if env.conn.PacketCount != 1 {
		t.Errorf("count = %v, want 1 (bookkeeping before decode)", env.conn.PacketCount)
	}
}

func TestRateLimitDetector_Disabled(t *testing.T) {
	values := only(KindRateLimit, map[string]any{
		"detection.rate_limit.max_allowance": 1.0,
	})
	values["detection.rate_limit.enabled"] = false
	env := newTestEnv(t, values)

	for range 5 {
		if vs := env.in(t, protocol.ChatMessage, nil, testJoinTime); len(vs) != 0 {
			t.Fatalf("disabled detector produced %d violations", len(vs))
		}
	}
}
