// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestShards_IndexIsStable(t *testing.T) {
	s := newShards(8, 1, nil)
	id := uuid.New()
	first := s.index(id)
	for range 10 {
		if got := s.index(id); got != first {
			t.Fatalf("index() = %d, want %d", got, first)
		}
	}
	if first < 0 || first >= 8 {
		t.Errorf("index() = %d, want in [0,8)", first)
	}
}

func TestShards_ZeroCountUsesOneShard(t *testing.T) {
	if got := len(newShards(0, 0, nil).queues); got != 1 {
		t.Errorf("len(queues) = %d, want 1", got)
	}
}

func TestShards_PreservesPerConnectionOrder(t *testing.T) {
	var mu sync.Mutex
	seen := map[uuid.UUID][]int32{}
	s := newShards(4, 4, func(_ context.Context, env Envelope) {
		mu.Lock()
		seen[env.ConnectionID] = append(seen[env.ConnectionID], env.Handle)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.run(ctx)
		close(done)
	}()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	const perConn = 50
	for i := range perConn {
		for _, id := range ids {
			if err := s.submit(ctx, Envelope{ConnectionID: id, Handle: int32(i)}); err != nil {
				t.Fatalf("submit() error = %v", err)
			}
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := 0
		for _, v := range seen {
			n += len(v)
		}
		mu.Unlock()
		if n == perConn*len(ids) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("handled %d envelopes, want %d", n, perConn*len(ids))
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	for _, id := range ids {
		for i, h := range seen[id] {
			if h != int32(i) {
				t.Fatalf("connection %s envelope %d has seq %d", id, i, h)
			}
		}
	}
}

func TestShards_SubmitHonorsContext(t *testing.T) {
	s := newShards(1, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.submit(ctx, Envelope{ConnectionID: uuid.New()}); err == nil {
		t.Error("submit() on full shard with canceled context error = nil, want error")
	}
}
