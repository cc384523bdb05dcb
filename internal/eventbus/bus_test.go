// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package eventbus

import (
	"slices"
	"sync"
	"testing"
)

type pingEvent struct{ n int }

func (pingEvent) EventKind() Kind { return "ping" }

type pongEvent struct{}

func (pongEvent) EventKind() Kind { return "pong" }

func TestBus_PriorityOrder(t *testing.T) {
	t.Parallel()

	b := New()
	var order []string
	b.Subscribe("ping", func(Event) { order = append(order, "high") }, High)
	b.Subscribe("ping", func(Event) { order = append(order, "low") }, Low)
	b.Subscribe("ping", func(Event) { order = append(order, "normal") }, Normal)

	if n := b.Publish(pingEvent{}); n != 3 {
		t.Errorf("Publish() = %d, want 3", n)
	}
	if want := []string{"high", "normal", "low"}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestBus_AllPrioritiesAndStableTies(t *testing.T) {
	t.Parallel()

	b := New()
	var order []string
	add := func(name string, p Priority) {
		b.Subscribe("ping", func(Event) { order = append(order, name) }, p)
	}
	add("lowest", Lowest)
	add("normal-1", Normal)
	add("highest", Highest)
	add("normal-2", Normal)
	add("low", Low)
	add("high", High)

	b.Publish(pingEvent{})

	want := []string{"highest", "high", "normal-1", "normal-2", "low", "lowest"}
	if !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestPriority_ZeroValueIsNormal(t *testing.T) {
	t.Parallel()

	var zero Priority
	if zero != Normal {
		t.Errorf("Priority zero value = %s, want %s", zero, Normal)
	}

	b := New()
	var order []string
	b.Subscribe("ping", func(Event) { order = append(order, "low") }, Low)
	b.Subscribe("ping", func(Event) { order = append(order, "unset") }, zero)
	b.Subscribe("ping", func(Event) { order = append(order, "high") }, High)

	b.Publish(pingEvent{})

	if want := []string{"high", "unset", "low"}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestBus_NoSubscribersIsNoop(t *testing.T) {
	t.Parallel()

	b := New()
	if n := b.Publish(pongEvent{}); n != 0 {
		t.Errorf("Publish() = %d, want 0", n)
	}
}

func TestBus_PanicDoesNotAbortSiblings(t *testing.T) {
	t.Parallel()

	b := New()
	ran := false
	b.Subscribe("ping", func(Event) { panic("boom") }, High)
	b.Subscribe("ping", func(Event) { ran = true }, Low)

	b.Publish(pingEvent{})

	if !ran {
		t.Error("handler after panicking handler did not run")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	t.Parallel()

	b := New()
	calls := 0
	unsub := b.Subscribe("ping", func(Event) { calls++ }, Normal)
	b.Publish(pingEvent{})
	unsub()
	unsub()
	b.Publish(pingEvent{})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if b.Subscribers("ping") != 0 {
		t.Errorf("Subscribers() = %d, want 0", b.Subscribers("ping"))
	}
}

func TestOn_TypedHandler(t *testing.T) {
	t.Parallel()

	b := New()
	var got int
	On(b, Normal, func(e pingEvent) { got = e.n })
	b.Publish(pingEvent{n: 7})

	if got != 7 {
		t.Errorf("got = %d, want 7", got)
	}
}

func TestBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	t.Parallel()

	b := New()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Subscribe("ping", func(Event) {}, Normal)
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish(pingEvent{})
			}
		}()
	}
	wg.Wait()

	if b.Subscribers("ping") != 4 {
		t.Errorf("Subscribers() = %d, want 4", b.Subscribers("ping"))
	}
}
