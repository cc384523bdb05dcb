// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package notify

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/logging"
	"github.com/tomtom215/tickguard/internal/metrics"
)

// breakerNotifier wraps a Notifier with a circuit breaker.
type breakerNotifier struct {
	Notifier
	cb *gobreaker.CircuitBreaker[struct{}]
}

// WithBreaker wraps n with a circuit breaker that opens after
// cfg.FailureThreshold consecutive failures and probes again after
// cfg.Timeout.
func WithBreaker(n Notifier, cfg config.BreakerConfig) Notifier {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	name := "notify-" + n.Name()
	metrics.RecordCircuitBreakerState(name, 0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: max(cfg.MaxRequests, 1),
		Interval:    cfg.Interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.RecordCircuitBreakerState(name, stateToInt(to))
		},
	})
	return &breakerNotifier{Notifier: n, cb: cb}
}

func (b *breakerNotifier) Send(ctx context.Context, alert *Alert) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.Notifier.Send(ctx, alert)
	})
	return err
}

// State returns the breaker state.
func (b *breakerNotifier) State() gobreaker.State { return b.cb.State() }

// isRejected reports whether err came from an open or saturated breaker
// rather than the notifier.
func isRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
