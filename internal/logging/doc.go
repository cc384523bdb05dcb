// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

// Package logging provides the zerolog-based structured logger used across Tickguard.
//
// A single global logger is configured once at startup with Init and accessed
// through the level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("topic", topic).Msg("ingest subscribed")
//	logging.Err(err).Str("sink", "webhook").Msg("delivery failed")
//
// Connection-scoped loggers carry the connection ID and username on every line:
//
//	ctx = logging.ContextWithConnection(ctx, id.String(), username)
//	logging.Ctx(ctx).Debug().Msg("late packet dropped")
//
// Two adapters let third-party libraries write through the same logger:
// NewSlogLogger for sutureslog, and NewWatermillLogger for watermill
// publishers, subscribers and routers.
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event is
// never written.
package logging
