// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	connectionIDKey contextKey = "connection_id"
	usernameKey     contextKey = "username"
	loggerKey       contextKey = "logger"
)

// ContextWithConnection tags ctx with a connection identity so that Ctx adds
// connection_id and username to every event.
func ContextWithConnection(ctx context.Context, connectionID, username string) context.Context {
	ctx = context.WithValue(ctx, connectionIDKey, connectionID)
	return context.WithValue(ctx, usernameKey, username)
}

// ConnectionIDFromContext returns the connection ID stored in ctx, or "".
func ConnectionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(connectionIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the logger stored in ctx, or the global logger.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with the connection fields from ctx attached.
//
//	logging.Ctx(ctx).Warn().Err(err).Msg("detector fault")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := LoggerFromContext(ctx).With()
	if id := ConnectionIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("connection_id", id)
	}
	if name, ok := ctx.Value(usernameKey).(string); ok && name != "" {
		logCtx = logCtx.Str("username", name)
	}
	logger := logCtx.Logger()
	return &logger
}
