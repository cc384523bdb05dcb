// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
)

type item struct {
	N int `json:"n"`
}

func testQueueConfig(buffer int) QueueConfig {
	cfg := DefaultQueueConfig()
	cfg.Buffer = buffer
	cfg.Router.RetryMaxRetries = 1
	cfg.Router.RetryInitialInterval = time.Millisecond
	cfg.Router.RetryMaxInterval = time.Millisecond
	cfg.Router.CloseTimeout = time.Second
	return cfg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 5s")
}

func TestQueue_DeliversToEveryHandler(t *testing.T) {
	q, err := NewQueue("test_fanout", testQueueConfig(16))
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}

	var mu sync.Mutex
	got := map[string][]int{}
	for _, name := range []string{"a", "b"} {
		err := q.Handle(name, func(msg *message.Message) error {
			it, err := Decode[item](msg)
			if err != nil {
				return err
			}
			mu.Lock()
			got[name] = append(got[name], it.N)
			mu.Unlock()
			return nil
		})
		if err != nil {
			t.Fatalf("Handle(%s) error = %v", name, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- q.RunWithContext(ctx) }()

	for i := range 3 {
		if !q.Enqueue(item{N: i}) {
			t.Fatalf("Enqueue(%d) dropped", i)
		}
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got["a"]) == 3 && len(got["b"]) == 3
	})
	mu.Lock()
	for name, ns := range got {
		for i, n := range ns {
			if n != i {
				t.Errorf("handler %s item %d = %d, want %d", name, i, n, i)
			}
		}
	}
	mu.Unlock()

	if err := q.Handle("late", func(*message.Message) error { return nil }); !errors.Is(err, ErrQueueRunning) {
		t.Errorf("Handle() after start error = %v, want ErrQueueRunning", err)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("queue did not stop")
	}
}

func TestQueue_EnqueueNeverBlocks(t *testing.T) {
	q, err := NewQueue("test_full", testQueueConfig(2))
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}

	// Not running: the buffer fills and further items are dropped.
	if !q.Enqueue(item{N: 1}) || !q.Enqueue(item{N: 2}) {
		t.Fatal("items within the buffer were dropped")
	}
	start := time.Now()
	if q.Enqueue(item{N: 3}) {
		t.Error("Enqueue() on a full queue should report a drop")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Enqueue() blocked on a full queue")
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
	if q.Enqueue(func() {}) {
		t.Error("Enqueue() of an unencodable value should fail")
	}
}

func TestQueue_FailingHandlerDoesNotStall(t *testing.T) {
	q, err := NewQueue("test_failing", testQueueConfig(16))
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}

	var attempts, delivered atomic.Int32
	_ = q.Handle("flaky", func(msg *message.Message) error {
		it, _ := Decode[item](msg)
		if it.N == 0 {
			attempts.Add(1)
			return errors.New("sink unavailable")
		}
		delivered.Add(1)
		return nil
	})
	_ = q.Handle("panicky", func(msg *message.Message) error {
		panic("boom")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.RunWithContext(ctx) }()

	q.Enqueue(item{N: 0})
	q.Enqueue(item{N: 1})

	waitFor(t, func() bool { return delivered.Load() == 1 })
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts for failing item = %d, want 2 (one retry)", got)
	}
}

func TestQueue_NoHandlersDiscards(t *testing.T) {
	q, err := NewQueue("test_empty", testQueueConfig(4))
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.RunWithContext(ctx) }()

	for range 10 {
		q.Enqueue(item{})
	}
	waitFor(t, func() bool { return q.Len() == 0 })
}
