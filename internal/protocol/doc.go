// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

// Package protocol defines the closed message vocabulary Tickguard understands.
//
// The transport decodes the game's wire format and hands Tickguard already
// framed packets: a Type from the fixed set below, a direction, the time it
// was received, and a JSON payload. Detectors decode only the payloads they
// need with Decode, so a malformed payload surfaces as an error inside the
// detector that asked for it.
package protocol
