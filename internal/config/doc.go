// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

/*
Package config loads Tickguard configuration and exposes it to the rest of the service.

# Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file: $TICKGUARD_CONFIG, ./tickguard.yaml, /etc/tickguard/tickguard.yaml
 3. Environment variables prefixed TICKGUARD_, with a double underscore
    separating levels: TICKGUARD_INGEST__NATS_URL -> ingest.nats_url

# Typed and live views

Load returns a Store. Store.Config returns the typed Config snapshot used to
wire the process at startup. Store also implements Values, the key/value view
the detectors read on every invocation:

	credit := values.Float64("detection.timing_balance.credit_ms", 50)

Detector thresholds are not part of the typed Config. They live only as keys
under detection.<kind>.* and every read supplies its own default, so a missing
key is never fatal.

When a file is in use, Store.Watch reloads it on change and swaps the
snapshot atomically; readers never see a partially applied reload.
*/
package config
