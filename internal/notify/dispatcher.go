// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/detection"
	"github.com/tomtom215/tickguard/internal/eventbus"
	"github.com/tomtom215/tickguard/internal/eventprocessor"
	"github.com/tomtom215/tickguard/internal/logging"
	"github.com/tomtom215/tickguard/internal/metrics"
)

const defaultSendTimeout = 15 * time.Second

// Dispatcher fans violations out to notifiers off the detection path.
type Dispatcher struct {
	queue       *eventprocessor.Queue
	sendTimeout time.Duration
	names       []string
}

// NewDispatcher creates a dispatcher with its own queue.
func NewDispatcher(queueCfg eventprocessor.QueueConfig) (*Dispatcher, error) {
	q, err := eventprocessor.NewQueue("notify", queueCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create notify queue: %w", err)
	}
	return &Dispatcher{queue: q, sendTimeout: defaultSendTimeout}, nil
}

// FromConfig creates a dispatcher with every enabled notifier in cfg, each
// behind a circuit breaker.
func FromConfig(cfg config.NotifyConfig) (*Dispatcher, error) {
	qc := eventprocessor.DefaultQueueConfig()
	if cfg.Buffer > 0 {
		qc.Buffer = cfg.Buffer
	}
	d, err := NewDispatcher(qc)
	if err != nil {
		return nil, err
	}
	if cfg.Webhook.Timeout > 0 {
		d.sendTimeout = cfg.Webhook.Timeout + 5*time.Second
	}

	if cfg.Webhook.Enabled {
		if err := d.Register(WithBreaker(NewWebhookNotifier(cfg.Webhook), cfg.Breaker), cfg.Webhook.MinStrategy); err != nil {
			return nil, err
		}
	}
	if cfg.Discord.Enabled {
		if err := d.Register(WithBreaker(NewDiscordNotifier(cfg.Discord), cfg.Breaker), cfg.Discord.MinStrategy); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Register adds a notifier receiving violations at or above minStrategy.
// It must be called before RunWithContext.
func (d *Dispatcher) Register(n Notifier, minStrategy string) error {
	minStrategyLevel, err := detection.ParseStrategy(minStrategy)
	if err != nil {
		return fmt.Errorf("notifier %s: %w", n.Name(), err)
	}
	if err := d.queue.Handle(n.Name(), d.handler(n, minStrategyLevel)); err != nil {
		return fmt.Errorf("failed to register notifier %s: %w", n.Name(), err)
	}
	d.names = append(d.names, n.Name())
	return nil
}

// Notifiers returns the names of the registered notifiers.
func (d *Dispatcher) Notifiers() []string { return append([]string(nil), d.names...) }

// Subscribe enqueues every violation published on bus.
func (d *Dispatcher) Subscribe(bus *eventbus.Bus) (unsubscribe func()) {
	return eventbus.On(bus, eventbus.Low, func(e detection.ViolationEvent) {
		if !d.queue.Enqueue(e.Violation.Record()) {
			logging.Debug().Str("violation_id", e.Violation.ID().String()).Msg("notify queue full, alert dropped")
		}
	})
}

// RunWithContext delivers queued alerts until ctx is done.
func (d *Dispatcher) RunWithContext(ctx context.Context) error {
	return d.queue.RunWithContext(ctx)
}

func (d *Dispatcher) handler(n Notifier, threshold detection.Strategy) message.NoPublishHandlerFunc {
	name := n.Name()
	return func(msg *message.Message) error {
		rec, err := eventprocessor.Decode[detection.ViolationRecord](msg)
		if err != nil {
			logging.Err(err).Str("notifier", name).Msg("dropping undecodable alert")
			return nil
		}
		if !n.Enabled() || !rec.Strategy.AtLeast(threshold) {
			return nil
		}

		ctx, cancel := context.WithTimeout(msg.Context(), d.sendTimeout)
		defer cancel()

		start := time.Now()
		err = n.Send(ctx, NewAlert(rec))
		switch {
		case err == nil:
			metrics.RecordSinkDelivery(name, "success", time.Since(start))
			return nil
		case isRejected(err):
			metrics.RecordSinkDelivery(name, "rejected", 0)
			logging.Debug().Err(err).Str("notifier", name).Msg("alert rejected by circuit breaker")
			return nil
		default:
			metrics.RecordSinkDelivery(name, "failure", time.Since(start))
			logging.Warn().Err(err).Str("notifier", name).Str("violation_id", rec.ID.String()).Msg("alert delivery failed")
			return err
		}
	}
}
