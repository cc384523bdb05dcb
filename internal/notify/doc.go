// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

/*
Package notify delivers violation alerts to external services.

The Dispatcher subscribes to violation events at low priority and hands each
violation to an eventprocessor.Queue, so alert delivery never runs on a
packet-processing goroutine. Every registered Notifier consumes the queue
independently and only sees violations at or above its minimum strategy.

Notifiers:
  - WebhookNotifier posts a JSON payload to any HTTP endpoint
  - DiscordNotifier posts an embed to a Discord webhook

Each notifier is rate limited with golang.org/x/time/rate and wrapped in a
sony/gobreaker circuit breaker (WithBreaker). While the breaker is open,
alerts for that notifier are dropped and counted rather than retried.
*/
package notify
