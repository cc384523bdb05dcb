// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/tickguard/internal/detection"
	"github.com/tomtom215/tickguard/internal/eventbus"
	"github.com/tomtom215/tickguard/internal/eventprocessor"
	"github.com/tomtom215/tickguard/internal/logging"
	"github.com/tomtom215/tickguard/internal/metrics"
)

// DefaultGCInterval is how often the recorder reclaims value log space.
const DefaultGCInterval = 10 * time.Minute

const recorderSink = "history"

// Recorder persists history entries published on the bus.
type Recorder struct {
	store      *HistoryStore
	queue      *eventprocessor.Queue
	gcInterval time.Duration
}

// NewRecorder creates a recorder writing into s.
func NewRecorder(s *HistoryStore, queueCfg eventprocessor.QueueConfig) (*Recorder, error) {
	q, err := eventprocessor.NewQueue(recorderSink, queueCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create history queue: %w", err)
	}
	r := &Recorder{store: s, queue: q, gcInterval: DefaultGCInterval}
	if err := q.Handle(recorderSink, r.handle); err != nil {
		return nil, fmt.Errorf("failed to register history handler: %w", err)
	}
	return r, nil
}

// Subscribe enqueues every history entry published on bus.
func (r *Recorder) Subscribe(bus *eventbus.Bus) (unsubscribe func()) {
	return eventbus.On(bus, eventbus.Low, func(e detection.HistoryEntryCreated) {
		if !r.queue.Enqueue(e.Entry) {
			logging.Debug().Str("entry_id", e.Entry.ID.String()).Msg("history queue full, entry dropped")
		}
	})
}

// RunWithContext writes queued entries and runs periodic GC until ctx is
// done. It returns the context error on shutdown, like the queue it drives.
func (r *Recorder) RunWithContext(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.queue.RunWithContext(ctx) })
	g.Go(func() error {
		ticker := time.NewTicker(r.gcInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := r.store.RunGC(); err != nil {
					logging.Warn().Err(err).Msg("history store GC failed")
				}
			}
		}
	})
	return g.Wait()
}

func (r *Recorder) handle(msg *message.Message) error {
	entry, err := eventprocessor.Decode[detection.HistoryEntry](msg)
	if err != nil {
		logging.Err(err).Msg("dropping undecodable history entry")
		return nil
	}
	start := time.Now()
	if err := r.store.Save(msg.Context(), entry); err != nil {
		metrics.RecordSinkDelivery(recorderSink, "failure", time.Since(start))
		return err
	}
	metrics.RecordSinkDelivery(recorderSink, "success", time.Since(start))
	return nil
}
