// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestStrategy_Ordering(t *testing.T) {
	if !StrategyBan.AtLeast(StrategyKick) || !StrategyKick.AtLeast(StrategyMitigate) {
		t.Error("expected mitigate < kick < ban")
	}
	if StrategyMitigate.AtLeast(StrategyKick) {
		t.Error("mitigate should not be at least kick")
	}
}

func TestStrategy_Labels(t *testing.T) {
	tests := []struct {
		strategy Strategy
		name     string
		verb     string
		label    string
	}{
		{StrategyMitigate, "mitigate", "mitigated", "MITIGATE"},
		{StrategyKick, "kick", "kicked", "KICK"},
		{StrategyBan, "ban", "banned", "BAN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.strategy.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := tt.strategy.Verb(); got != tt.verb {
				t.Errorf("Verb() = %q, want %q", got, tt.verb)
			}
			if got := tt.strategy.HistoryLabel(); got != tt.label {
				t.Errorf("HistoryLabel() = %q, want %q", got, tt.label)
			}
			parsed, err := ParseStrategy(strings.ToUpper(tt.name))
			if err != nil || parsed != tt.strategy {
				t.Errorf("ParseStrategy(%q) = %v, %v", tt.name, parsed, err)
			}
		})
	}

	if s, err := ParseStrategy(""); err != nil || s != StrategyMitigate {
		t.Errorf("ParseStrategy(\"\") = %v, %v, want mitigate", s, err)
	}
	if _, err := ParseStrategy("shadowban"); err == nil {
		t.Error("ParseStrategy(shadowban) should fail")
	}
}

func TestDebug_Formatting(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{"text", "text"},
		{501.0, "501"},
		{0.5, "0.5"},
		{46, "46"},
		{int64(-50), "-50"},
		{uint64(7), "7"},
		{errors.New("bad varint"), "bad varint"},
		{true, "true"},
	}

	for _, tt := range tests {
		if got := Debug("k", tt.value).Value; got != tt.want {
			t.Errorf("Debug(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestViolation_Immutable(t *testing.T) {
	env := newTestEnv(t, nil)
	v := env.mgr.pipeline.Report(env.conn, KindSignBounds, 3, "update_sign", Report{
		Debug: []DebugPair{Debug("length", 46)},
	})

	d := v.Debug()
	d[0].Value = "0"
	if got, _ := v.DebugValue("length"); got != "46" {
		t.Errorf("debug mutated through copy: %q", got)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var rec ViolationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if rec.Kind != KindSignBounds || rec.Strategy != StrategyMitigate || rec.Tick != 3 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Description != DefaultDescription {
		t.Errorf("description = %q, want %q", rec.Description, DefaultDescription)
	}
}
