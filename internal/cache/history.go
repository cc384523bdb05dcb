// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package cache

import "iter"

// History is a bounded FIFO backed by a circular buffer. Pushing onto a full
// History discards the oldest item first.
type History[T any] struct {
	items []T
	head  int // index of the oldest item
	size  int
}

// NewHistory creates a History holding at most capacity items.
// It panics if capacity is less than 1.
func NewHistory[T any](capacity int) *History[T] {
	if capacity < 1 {
		panic("cache: history capacity must be at least 1")
	}
	return &History[T]{items: make([]T, capacity)}
}

// Push appends item, evicting the oldest item when full.
func (h *History[T]) Push(item T) {
	if h.size < len(h.items) {
		h.items[(h.head+h.size)%len(h.items)] = item
		h.size++
		return
	}
	h.items[h.head] = item
	h.head = (h.head + 1) % len(h.items)
}

// All yields items oldest to newest.
func (h *History[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := 0; i < h.size; i++ {
			if !yield(h.items[(h.head+i)%len(h.items)]) {
				return
			}
		}
	}
}

// Slice returns a copy of the items, oldest first.
func (h *History[T]) Slice() []T {
	out := make([]T, 0, h.size)
	for v := range h.All() {
		out = append(out, v)
	}
	return out
}

// First returns the oldest item.
func (h *History[T]) First() (T, bool) {
	if h.size == 0 {
		var zero T
		return zero, false
	}
	return h.items[h.head], true
}

// Len returns the number of items held.
func (h *History[T]) Len() int { return h.size }

// Cap returns the fixed capacity.
func (h *History[T]) Cap() int { return len(h.items) }

// Clear empties the buffer. Slots are overwritten lazily by later pushes.
func (h *History[T]) Clear() {
	h.head = 0
	h.size = 0
}
