// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

// Package store persists violation history entries in BadgerDB.
//
// Entries are keyed by creation time so listing newest-first is a reverse
// prefix scan, with secondary keys by entry ID and by connection. Every key
// carries the retention period as its Badger TTL, so expiry needs no sweeper;
// RunGC only reclaims value log space.
//
// The Recorder feeds the store from history_entry_created events through an
// eventprocessor.Queue, keeping disk writes off the detection path.
package store
