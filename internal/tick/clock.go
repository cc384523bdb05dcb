// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

// Package tick provides the logical tick clock shared by all connections.
//
// Detectors compare tick deltas instead of wall-clock deltas so that clock
// adjustments on the host cannot skew them. The counter is a uint64; at the
// default 50ms interval it would take far longer than any server uptime to
// wrap, and wrapping is not handled.
package tick

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/tickguard/internal/logging"
	"github.com/tomtom215/tickguard/internal/metrics"
)

// DefaultInterval is the protocol tick period.
const DefaultInterval = 50 * time.Millisecond

// Source is the read side of the clock.
type Source interface {
	Current() uint64
}

// Clock is a monotonically increasing tick counter.
type Clock struct {
	current  atomic.Uint64
	interval time.Duration
}

// New creates a clock that advances once per interval while running.
// A non-positive interval selects DefaultInterval.
func New(interval time.Duration) *Clock {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Clock{interval: interval}
}

// Current returns the latest tick.
func (c *Clock) Current() uint64 {
	return c.current.Load()
}

// Advance increments the clock by one and returns the new tick.
func (c *Clock) Advance() uint64 {
	n := c.current.Add(1)
	metrics.CurrentTick.Set(float64(n))
	return n
}

// Interval returns the tick period.
func (c *Clock) Interval() time.Duration {
	return c.interval
}

// RunWithContext advances the clock until ctx is done.
func (c *Clock) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", c.interval).Uint64("tick", c.Current()).Msg("tick clock started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Uint64("tick", c.Current()).Msg("tick clock stopped")
			return ctx.Err()
		case <-ticker.C:
			c.Advance()
		}
	}
}
