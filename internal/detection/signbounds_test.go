// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/tickguard/internal/protocol"
)

func TestSignBoundsDetector_LineLength(t *testing.T) {
	tests := []struct {
		name       string
		lines      []string
		violations int
		length     string
	}{
		{name: "empty sign", lines: []string{"", "", "", ""}},
		{name: "line at limit", lines: []string{strings.Repeat("a", 45)}},
		{name: "line one over limit", lines: []string{strings.Repeat("a", 46)}, violations: 1, length: "46"},
		{name: "multibyte at limit", lines: []string{strings.Repeat("é", 45)}},
		{
			name:       "two long lines",
			lines:      []string{strings.Repeat("x", 60), "ok", strings.Repeat("y", 100), ""},
			violations: 2,
			length:     "60",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, only(KindSignBounds, nil))
			vs := env.in(t, protocol.UpdateSign, protocol.SignUpdate{Lines: tt.lines}, testJoinTime.Add(time.Minute))

			if len(vs) != tt.violations {
				t.Fatalf("violations = %d, want %d", len(vs), tt.violations)
			}
			for _, v := range vs {
				if v.Strategy() != StrategyBan {
					t.Errorf("strategy = %v, want ban", v.Strategy())
				}
			}
			if tt.violations > 0 {
				if got, _ := vs[0].DebugValue("length"); got != tt.length {
					t.Errorf("debug length = %q, want %q", got, tt.length)
				}
			}
		})
	}
}

func TestSignBoundsDetector_UndecodableIsBan(t *testing.T) {
	env := newTestEnv(t, only(KindSignBounds, nil))
	pk := mustPacket(t, protocol.UpdateSign, nil, testJoinTime)
	pk.Payload = []byte(`{"lines": 12}`)

	vs, err := env.mgr.HandleInbound(t.Context(), env.conn.ID(), pk)
	if err != nil {
		t.Fatalf("HandleInbound() error = %v", err)
	}
	if len(vs) != 1 {
		t.Fatalf("violations = %d, want 1", len(vs))
	}
	if vs[0].Strategy() != StrategyBan || vs[0].Kind() != KindSignBounds {
		t.Errorf("violation = %s/%s, want sign_bounds/ban", vs[0].Kind(), vs[0].Strategy())
	}
	if _, ok := vs[0].DebugValue("error"); !ok {
		t.Error("expected error debug pair")
	}
}

func TestSignBoundsDetector_ConfiguredLimitAndDisable(t *testing.T) {
	env := newTestEnv(t, only(KindSignBounds, map[string]any{
		"detection.sign_bounds.max_line_length": 10,
	}))
	sign := protocol.SignUpdate{Lines: []string{strings.Repeat("a", 11)}}
	if vs := env.in(t, protocol.UpdateSign, sign, testJoinTime); len(vs) != 1 {
		t.Errorf("violations with limit 10 = %d, want 1", len(vs))
	}

	values := only(KindSignBounds, nil)
	values["detection.sign_bounds.enabled"] = false
	env = newTestEnv(t, values)
	sign.Lines = []string{strings.Repeat("a", 200)}
	if vs := env.in(t, protocol.UpdateSign, sign, testJoinTime); len(vs) != 0 {
		t.Errorf("violations while disabled = %d, want 0", len(vs))
	}
}
