// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

// Package eventbus is a synchronous, priority-ordered publish/subscribe bus.
//
// Handlers for an event kind run on the publishing goroutine, one after the
// other, in ascending priority score: Highest first, Lowest last. Handlers
// with equal priority run in subscription order. A handler that panics is
// recovered and logged; the remaining handlers still run.
//
// Handlers must not block. Anything slow (network, disk) belongs behind a
// queue owned by the subscriber.
package eventbus

import (
	"fmt"
	"slices"
	"sync"

	"github.com/tomtom215/tickguard/internal/logging"
	"github.com/tomtom215/tickguard/internal/metrics"
)

// Kind names a concrete event type.
type Kind string

// Event is anything published on the bus.
type Event interface {
	EventKind() Kind
}

// Handler receives published events.
type Handler func(Event)

// Priority orders handlers for the same event kind. Lower values run first;
// the zero value is Normal.
type Priority int

const (
	Highest Priority = -200
	High    Priority = -100
	Normal  Priority = 0
	Low     Priority = 100
	Lowest  Priority = 200
)

// Score returns the sort key of p. Lower scores run first.
func (p Priority) Score() int { return int(p) }

func (p Priority) String() string {
	switch p {
	case Highest:
		return "HIGHEST"
	case High:
		return "HIGH"
	case Normal:
		return "NORMAL"
	case Low:
		return "LOW"
	case Lowest:
		return "LOWEST"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

type subscription struct {
	id       uint64
	priority Priority
	handler  Handler
}

// Bus routes events to subscribers. The zero value is not usable; use New.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64

	// Each slice is replaced on write and never mutated in place, so a
	// publisher can iterate a snapshot without holding the lock.
	subs map[Kind][]subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Kind][]subscription)}
}

// Subscribe registers handler for kind at priority and returns a function
// that removes it.
func (b *Bus) Subscribe(kind Kind, handler Handler, priority Priority) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID

	list := slices.Clone(b.subs[kind])
	list = append(list, subscription{id: id, priority: priority, handler: handler})
	slices.SortStableFunc(list, func(a, c subscription) int {
		return a.priority.Score() - c.priority.Score()
	})
	b.subs[kind] = list

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(kind, id) })
	}
}

func (b *Bus) remove(kind Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := slices.DeleteFunc(slices.Clone(b.subs[kind]), func(s subscription) bool {
		return s.id == id
	})
	if len(list) == 0 {
		delete(b.subs, kind)
		return
	}
	b.subs[kind] = list
}

// On subscribes a typed handler. E must be a value type whose EventKind
// works on the zero value. Events of that kind with another concrete type
// are ignored.
//
//	eventbus.On(bus, eventbus.Low, func(e detection.ViolationEvent) { ... })
func On[E Event](b *Bus, priority Priority, fn func(E)) (unsubscribe func()) {
	var zero E
	return b.Subscribe(zero.EventKind(), func(ev Event) {
		if e, ok := ev.(E); ok {
			fn(e)
		}
	}, priority)
}

// Publish delivers ev to every handler subscribed to its kind and returns
// the number of handlers invoked. With no subscribers it does nothing.
func (b *Bus) Publish(ev Event) int {
	b.mu.RLock()
	list := b.subs[ev.EventKind()]
	b.mu.RUnlock()

	for _, s := range list {
		b.invoke(ev, s)
	}
	return len(list)
}

// Subscribers returns the number of handlers registered for kind.
func (b *Bus) Subscribers(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

func (b *Bus) invoke(ev Event, s subscription) {
	defer func() {
		if r := recover(); r != nil {
			metrics.BusHandlerPanics.WithLabelValues(string(ev.EventKind())).Inc()
			logging.Error().
				Str("event", string(ev.EventKind())).
				Str("priority", s.priority.String()).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	s.handler(ev)
}
