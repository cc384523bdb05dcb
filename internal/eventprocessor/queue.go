// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tickguard/internal/logging"
	"github.com/tomtom215/tickguard/internal/metrics"
)

// ErrQueueRunning is returned by Handle once the queue has started.
var ErrQueueRunning = errors.New("queue already running")

// QueueConfig configures a Queue.
type QueueConfig struct {
	// Buffer is the number of items waiting to be published. Enqueue drops
	// items beyond it.
	Buffer int
	Router RouterConfig
}

// DefaultQueueConfig returns production defaults for a Queue.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Buffer: 1024,
		Router: DefaultRouterConfig(),
	}
}

// Queue is a bounded, non-blocking, in-process work queue backed by a
// Watermill GoChannel and Router. Every handler sees every item.
type Queue struct {
	name    string
	topic   string
	pubsub  *gochannel.GoChannel
	router  *message.Router
	pending chan *message.Message
	logger  watermill.LoggerAdapter

	handlers int
	started  atomic.Bool
}

// NewQueue creates a queue. name labels logs and metrics.
func NewQueue(name string, cfg QueueConfig) (*Queue, error) {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultQueueConfig().Buffer
	}
	logger := logging.NewWatermillLogger("eventprocessor." + name)

	router, err := newRouter(cfg.Router, logger)
	if err != nil {
		return nil, err
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		// The drain loop publishes one item at a time and waits for every
		// handler, which bounds memory to Buffer plus the item in flight.
		BlockPublishUntilSubscriberAck: true,
	}, logger)

	return &Queue{
		name:    name,
		topic:   "tickguard." + name,
		pubsub:  pubsub,
		router:  router,
		pending: make(chan *message.Message, cfg.Buffer),
		logger:  logger,
	}, nil
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Handle registers a consumer. It must be called before RunWithContext.
func (q *Queue) Handle(name string, fn message.NoPublishHandlerFunc) error {
	if q.started.Load() {
		return ErrQueueRunning
	}
	q.router.AddConsumerHandler(name, q.topic, q.pubsub, fn)
	q.handlers++
	return nil
}

// Enqueue serializes v and queues it without blocking. It reports false if
// the item was dropped.
func (q *Queue) Enqueue(v any) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		logging.Err(err).Str("queue", q.name).Msg("failed to encode queue item")
		return false
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)

	select {
	case q.pending <- msg:
		return true
	default:
		metrics.RecordSinkDropped(q.name)
		return false
	}
}

// Len returns the number of items waiting to be published.
func (q *Queue) Len() int { return len(q.pending) }

// RunWithContext runs the router and publishes queued items until ctx is
// done.
func (q *Queue) RunWithContext(ctx context.Context) error {
	q.started.Store(true)
	defer func() {
		if err := q.pubsub.Close(); err != nil {
			logging.Warn().Err(err).Str("queue", q.name).Msg("failed to close queue pubsub")
		}
	}()

	if q.handlers == 0 {
		logging.Debug().Str("queue", q.name).Msg("queue has no handlers, discarding items")
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-q.pending:
			}
		}
	}

	routerErr := make(chan error, 1)
	go func() {
		routerErr <- q.router.Run(ctx)
	}()

	select {
	case <-q.router.Running():
	case err := <-routerErr:
		return fmt.Errorf("queue %s router stopped: %w", q.name, err)
	case <-ctx.Done():
		return ctx.Err()
	}

	logging.Info().Str("queue", q.name).Int("handlers", q.handlers).Msg("queue started")
	for {
		select {
		case <-ctx.Done():
			if n := len(q.pending); n > 0 {
				logging.Warn().Str("queue", q.name).Int("pending", n).Msg("queue stopped with pending items")
			}
			return ctx.Err()
		case msg := <-q.pending:
			if err := q.pubsub.Publish(q.topic, msg); err != nil {
				logging.Err(err).Str("queue", q.name).Msg("failed to publish queue item")
			}
		}
	}
}

// Decode unmarshals the payload of msg into T.
func Decode[T any](msg *message.Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return v, nil
}
