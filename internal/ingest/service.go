// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/detection"
	"github.com/tomtom215/tickguard/internal/logging"
	"github.com/tomtom215/tickguard/internal/metrics"
	"github.com/tomtom215/tickguard/internal/protocol"
)

// Envelope results recorded in metrics.
const (
	resultOK       = "ok"
	resultDropped  = "dropped"
	resultRejected = "rejected"
	resultError    = "error"
)

// Service consumes the ingest topic and drives the Manager.
type Service struct {
	topic     string
	manager   *detection.Manager
	transport *Transport
	shards    *shards
	now       func() time.Time

	readyOnce sync.Once
	ready     chan struct{}
}

// NewService creates an ingest service reading cfg.Topic from transport.
func NewService(cfg config.IngestConfig, manager *detection.Manager, transport *Transport) *Service {
	s := &Service{
		topic:     cfg.Topic,
		manager:   manager,
		transport: transport,
		now:       time.Now,
		ready:     make(chan struct{}),
	}
	s.shards = newShards(cfg.Shards, cfg.ShardBuffer, s.handle)
	return s
}

// Ready is closed once the service is subscribed.
func (s *Service) Ready() <-chan struct{} { return s.ready }

// String implements fmt.Stringer for suture logs.
func (s *Service) String() string { return "ingest" }

// RunWithContext consumes envelopes until ctx is done or the subscription
// ends. Open connections are left in the Manager so a restarted service
// picks them up again; closing them is the owner's job at shutdown.
func (s *Service) RunWithContext(ctx context.Context) error {
	messages, err := s.transport.Subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.shards.run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	s.readyOnce.Do(func() { close(s.ready) })
	logging.Info().Str("topic", s.topic).Int("shards", len(s.shards.queues)).Msg("ingest started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			env, err := DecodeEnvelope(msg.Payload)
			if err != nil {
				metrics.RecordIngestEnvelope("invalid", resultRejected)
				logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("discarding undecodable envelope")
				msg.Ack()
				continue
			}
			env.stamp(s.now())
			if err := s.shards.submit(ctx, env); err != nil {
				msg.Nack()
				return err
			}
			msg.Ack()
		}
	}
}

// handle applies one envelope on its shard goroutine.
func (s *Service) handle(ctx context.Context, env Envelope) {
	var err error
	switch env.Kind {
	case KindOpen:
		_, err = s.manager.Open(ctx, env.Info(env.receivedAt))
	case KindClose:
		err = s.manager.Close(ctx, env.ConnectionID)
	case KindPacket:
		pk := *env.Packet
		if env.Direction == protocol.Outbound {
			_, err = s.manager.HandleOutbound(ctx, env.ConnectionID, &pk)
		} else {
			_, err = s.manager.HandleInbound(ctx, env.ConnectionID, &pk)
		}
	}

	kind := string(env.Kind)
	switch {
	case err == nil:
		metrics.RecordIngestEnvelope(kind, resultOK)
	case errors.Is(err, detection.ErrConnectionClosed),
		errors.Is(err, detection.ErrUnknownConnection),
		errors.Is(err, detection.ErrDuplicateConnection):
		metrics.RecordIngestEnvelope(kind, resultDropped)
		logging.Debug().Err(err).
			Str("connection_id", env.ConnectionID.String()).
			Str("kind", kind).
			Msg("envelope dropped")
	default:
		metrics.RecordIngestEnvelope(kind, resultError)
		logging.Warn().Err(err).
			Str("connection_id", env.ConnectionID.String()).
			Str("kind", kind).
			Msg("envelope failed")
	}
}
