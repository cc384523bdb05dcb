// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"slices"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tickguard/internal/protocol"
)

func postOrderDetector(t *testing.T, env *testEnv) *PostOrderDetector {
	t.Helper()
	d, ok := env.conn.Detector(KindPostOrder)
	if !ok {
		t.Fatal("post order detector not registered")
	}
	return d.(*PostOrderDetector)
}

func TestPostOrderDetector_ActionAfterMovement(t *testing.T) {
	env := newTestEnv(t, only(KindPostOrder, nil))
	d := postOrderDetector(t, env)
	at := testJoinTime.Add(2 * time.Second)
	env.advance(100)

	env.in(t, protocol.Position, nil, at)
	env.in(t, protocol.BlockPlace, nil, at)

	if n := env.sender.count(protocol.ServerPing); n != 1 {
		t.Fatalf("pings sent = %d, want 1", n)
	}
	sent, _ := env.sender.last()
	var rt protocol.RoundTrip
	if err := json.Unmarshal(sent.pk.Payload, &rt); err != nil {
		t.Fatalf("ping payload: %v", err)
	}
	if rt.ID != 1 {
		t.Errorf("ping id = %d, want 1", rt.ID)
	}

	env.in(t, protocol.Pong, protocol.RoundTrip{ID: 1}, at)
	if got := d.Flags(); !slices.Equal(got, []string{"block_place"}) {
		t.Fatalf("flags = %v, want [block_place]", got)
	}

	vs := env.in(t, protocol.Position, nil, at.Add(50*time.Millisecond))
	if len(vs) != 1 {
		t.Fatalf("violations = %d, want 1", len(vs))
	}
	if vs[0].Strategy() != StrategyMitigate {
		t.Errorf("strategy = %v, want mitigate", vs[0].Strategy())
	}
	if got, _ := vs[0].DebugValue("packet"); got != "block_place" {
		t.Errorf("debug packet = %q, want block_place", got)
	}
	if d.flags.Len() != 0 {
		t.Errorf("flags after report = %d, want 0", d.flags.Len())
	}
}

func TestPostOrderDetector_TenFlagsReportedOnce(t *testing.T) {
	env := newTestEnv(t, only(KindPostOrder, nil))
	d := postOrderDetector(t, env)
	env.advance(100)

	for range 10 {
		d.flags.Push(string(protocol.BlockPlace))
	}

	vs := env.in(t, protocol.Flying, nil, testJoinTime.Add(5*time.Second))
	if len(vs) != 10 {
		t.Errorf("violations = %d, want 10", len(vs))
	}
	if d.flags.Len() != 0 {
		t.Errorf("flags after movement = %d, want 0", d.flags.Len())
	}
	if vs := env.in(t, protocol.Flying, nil, testJoinTime.Add(5*time.Second)); len(vs) != 0 {
		t.Errorf("second movement produced %d violations, want 0", len(vs))
	}
}

func TestPostOrderDetector_FlagBufferIsBounded(t *testing.T) {
	env := newTestEnv(t, only(KindPostOrder, nil))
	d := postOrderDetector(t, env)
	for range 15 {
		d.flags.Push(string(protocol.UseItem))
	}
	if d.flags.Len() != 10 {
		t.Errorf("flags = %d, want 10", d.flags.Len())
	}
}

func TestPostOrderDetector_Suppression(t *testing.T) {
	tests := []struct {
		name     string
		at       time.Time
		teleport bool
	}{
		{name: "within join grace", at: testJoinTime.Add(500 * time.Millisecond)},
		{name: "after recent teleport", at: testJoinTime.Add(5 * time.Second), teleport: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, only(KindPostOrder, nil))
			d := postOrderDetector(t, env)
			env.advance(100)
			if tt.teleport {
				env.out(t, protocol.ServerPositionCorrection, protocol.PositionCorrection{}, tt.at)
				env.advance(5)
			}
			d.flags.Push(string(protocol.BlockPlace))

			if vs := env.in(t, protocol.Position, nil, tt.at); len(vs) != 0 {
				t.Errorf("violations = %d, want 0", len(vs))
			}
			if d.flags.Len() != 0 {
				t.Errorf("flags = %d, want cleared", d.flags.Len())
			}
		})
	}
}

func TestPostOrderDetector_TeleportWindowExpires(t *testing.T) {
	env := newTestEnv(t, only(KindPostOrder, nil))
	d := postOrderDetector(t, env)
	at := testJoinTime.Add(5 * time.Second)

	env.advance(100)
	env.out(t, protocol.ServerPositionCorrection, protocol.PositionCorrection{}, at)
	env.advance(20)
	d.flags.Push(string(protocol.UseItem))

	if vs := env.in(t, protocol.Position, nil, at); len(vs) != 1 {
		t.Errorf("violations = %d, want 1", len(vs))
	}
}

func TestPostOrderDetector_KickEscalation(t *testing.T) {
	env := newTestEnv(t, only(KindPostOrder, map[string]any{
		"detection.post_order.kick_threshold": 2.0,
	}))
	d := postOrderDetector(t, env)
	env.advance(100)
	for range 5 {
		d.flags.Push(string(protocol.BlockPlace))
	}

	vs := env.in(t, protocol.Position, nil, testJoinTime.Add(5*time.Second))
	if got := countStrategy(vs, StrategyMitigate); got != 3 {
		t.Errorf("mitigations = %d, want 3", got)
	}
	if got := countStrategy(vs, StrategyKick); got != 2 {
		t.Errorf("kicks = %d, want 2", got)
	}
}

func TestPostOrderDetector_OrderedActions(t *testing.T) {
	env := newTestEnv(t, only(KindPostOrder, nil))
	d := postOrderDetector(t, env)
	at := testJoinTime.Add(2 * time.Second)

	// Action before movement is the vanilla order.
	env.in(t, protocol.UseItem, nil, at)
	if n := env.sender.count(protocol.ServerPing); n != 0 {
		t.Errorf("pings for in-order action = %d, want 0", n)
	}

	// A pong with nothing pending flags nothing.
	env.in(t, protocol.Position, nil, at)
	env.in(t, protocol.Pong, protocol.RoundTrip{ID: 7}, at)
	if d.flags.Len() != 0 {
		t.Errorf("flags = %d, want 0", d.flags.Len())
	}

	// A movement before the pong clears the pending queue.
	env.in(t, protocol.Position, nil, at)
	env.in(t, protocol.UseItem, nil, at)
	env.in(t, protocol.Position, nil, at)
	env.in(t, protocol.Pong, protocol.RoundTrip{ID: 1}, at)
	if d.flags.Len() != 0 {
		t.Errorf("flags after movement cleared queue = %d, want 0", d.flags.Len())
	}
}

func TestPostOrderDetector_ClickWindowByVersion(t *testing.T) {
	tests := []struct {
		name    string
		version protocol.Version
		tracked bool
	}{
		{name: "1.8 tracks window clicks", version: protocol.V1_8, tracked: true},
		{name: "1.9 ignores window clicks", version: protocol.V1_9, tracked: false},
		{name: "1.20.4 ignores window clicks", version: protocol.V1_20_4, tracked: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, only(KindPostOrder, nil), withVersion(tt.version))
			d := postOrderDetector(t, env)
			at := testJoinTime.Add(2 * time.Second)

			if got := slices.Contains(d.Inbound(), protocol.ClickWindow); got != tt.tracked {
				t.Errorf("routes click_window = %v, want %v", got, tt.tracked)
			}

			env.in(t, protocol.Position, nil, at)
			env.in(t, protocol.ClickWindow, nil, at)
			env.in(t, protocol.Pong, protocol.RoundTrip{ID: 1}, at)

			want := 0
			if tt.tracked {
				want = 1
			}
			if n := env.sender.count(protocol.ServerPing); n != want {
				t.Errorf("pings = %d, want %d", n, want)
			}
			if d.flags.Len() != want {
				t.Errorf("flags = %d, want %d", d.flags.Len(), want)
			}
		})
	}
}
