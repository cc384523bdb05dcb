// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

/*
Package eventprocessor moves work off the packet-processing goroutines.

A Queue is an in-process Watermill pipeline: producers call Enqueue, which
never blocks and drops the item when the buffer is full; a drain goroutine
publishes each item to a GoChannel topic, and the handlers registered with
Handle consume it through a Watermill Router with panic recovery, bounded
retry and optional throttling.

Notification and history persistence each own a Queue, so a slow webhook can
never stall detection or the history store.

	q, err := eventprocessor.NewQueue("notify", eventprocessor.DefaultQueueConfig())
	q.Handle("webhook", func(msg *message.Message) error { ... })
	go q.RunWithContext(ctx)
	q.Enqueue(record)
*/
package eventprocessor
