// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("Level = %q, want %q", cfg.Level, "info")
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}
	if !cfg.Timestamp {
		t.Error("expected timestamps enabled by default")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestInit_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("detector", "rate_limit").Msg("registered")

	out := buf.String()
	if !strings.Contains(out, `"detector":"rate_limit"`) {
		t.Errorf("output missing field: %s", out)
	}
	if !strings.Contains(out, `"level":"info"`) {
		t.Errorf("output missing level: %s", out)
	}
}

func TestCtx_AddsConnectionFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithConnection(ctx, "c0ffee", "steve")

	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"connection_id":"c0ffee"`) {
		t.Errorf("missing connection_id: %s", out)
	}
	if !strings.Contains(out, `"username":"steve"`) {
		t.Errorf("missing username: %s", out)
	}
	if got := ConnectionIDFromContext(ctx); got != "c0ffee" {
		t.Errorf("ConnectionIDFromContext() = %q, want %q", got, "c0ffee")
	}
}

func TestSlogHandler_GroupsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	logger := NewTestLogger(&buf)
	h := NewSlogHandler(logger).WithGroup("svc").WithGroup("tree")

	slogger := slog.New(h)
	slogger.Warn("restarting", "attempt", 3)

	out := buf.String()
	if !strings.Contains(out, `"svc.tree.attempt":3`) {
		t.Errorf("group prefix not applied in order: %s", out)
	}
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("level not mapped: %s", out)
	}
}

func TestWatermillLogger(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	l := NewWatermillLoggerWith(NewTestLogger(&buf)).With(watermill.LogFields{"topic": "packets"})
	l.Error("publish failed", errors.New("boom"), watermill.LogFields{"attempt": 1})

	out := buf.String()
	for _, want := range []string{`"topic":"packets"`, `"error":"boom"`, `"attempt":1`, `"level":"error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}
