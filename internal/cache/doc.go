// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

// Package cache provides the small containers used by the detection core.
//
// History is a fixed-capacity FIFO that evicts its oldest element on
// overflow. It backs every "last N events" window a detector keeps and is
// not safe for concurrent use: its owner is confined to one goroutine.
//
// TTLCache is a concurrent LRU with per-entry expiry. It is the only
// cross-connection cache in the core and is used to remember recently
// closed connections so late packets can be rejected.
package cache
