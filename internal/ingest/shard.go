// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package ingest

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/metrics"
)

// shards runs one goroutine per shard. Envelopes for the same connection
// always land on the same shard.
type shards struct {
	queues []chan Envelope
	handle func(context.Context, Envelope)
}

func newShards(n, buffer int, handle func(context.Context, Envelope)) *shards {
	n = max(n, 1)
	s := &shards{queues: make([]chan Envelope, n), handle: handle}
	for i := range s.queues {
		s.queues[i] = make(chan Envelope, max(buffer, 0))
	}
	return s
}

// index returns the shard owning id.
func (s *shards) index(id uuid.UUID) int {
	h := fnv.New32a()
	_, _ = h.Write(id[:])
	return int(h.Sum32() % uint32(len(s.queues)))
}

// submit blocks until the owning shard accepts env or ctx is done.
func (s *shards) submit(ctx context.Context, env Envelope) error {
	i := s.index(env.ConnectionID)
	select {
	case s.queues[i] <- env:
		metrics.SetShardQueueDepth(i, len(s.queues[i]))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run processes envelopes until ctx is done. Envelopes still queued at
// shutdown are discarded.
func (s *shards) run(ctx context.Context) {
	var wg sync.WaitGroup
	for i, q := range s.queues {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case env := <-q:
					s.handle(ctx, env)
					metrics.SetShardQueueDepth(i, len(q))
				}
			}
		}()
	}
	wg.Wait()
}
