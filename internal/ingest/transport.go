// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/logging"
)

// Source names accepted by ingest.source.
const (
	SourceChannel = "channel"
	SourceNATS    = "nats"
)

const (
	natsMaxReconnects = -1
	natsReconnectWait = 2 * time.Second
	natsCloseTimeout  = 10 * time.Second
)

// Transport is the publisher and subscriber pair ingest runs on.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	server *EmbeddedServer
	shared bool
}

// NewTransport builds the transport named by cfg.Source.
func NewTransport(cfg config.IngestConfig) (*Transport, error) {
	logger := logging.NewWatermillLogger("ingest")
	switch cfg.Source {
	case SourceChannel, "":
		return NewChannelTransport(cfg.ShardBuffer, logger), nil
	case SourceNATS:
		return NewNATSTransport(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown ingest source %q", cfg.Source)
	}
}

// NewChannelTransport returns an in-process transport. Messages published
// before a subscriber exists are discarded. Publish waits for subscribers to
// ack, which keeps messages in publish order.
func NewChannelTransport(buffer int, logger watermill.LoggerAdapter) *Transport {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            int64(buffer),
		BlockPublishUntilSubscriberAck: true,
	}, logger)
	return &Transport{Publisher: pubsub, Subscriber: pubsub, shared: true}
}

// NewNATSTransport connects to NATS, starting an embedded server first when
// cfg.EmbeddedNATS is set.
func NewNATSTransport(cfg config.IngestConfig, logger watermill.LoggerAdapter) (*Transport, error) {
	t := &Transport{}
	url := cfg.NATSURL
	if cfg.EmbeddedNATS {
		srv, err := NewEmbeddedServer(cfg.EmbeddedHost, cfg.EmbeddedPort)
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded NATS: %w", err)
		}
		t.server = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("embedded NATS server started")
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("tickguard"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(natsMaxReconnects),
		natsgo.ReconnectWait(natsReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
	jetStream := wmNats.JetStreamConfig{Disabled: true}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   jetStream,
	}, logger)
	if err != nil {
		t.shutdownServer()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	t.Publisher = pub

	// More than one subscriber per process would break per-connection order.
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: max(cfg.SubscribersCount, 1),
		CloseTimeout:     natsCloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        jetStream,
	}, logger)
	if err != nil {
		_ = pub.Close()
		t.shutdownServer()
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	t.Subscriber = sub
	return t, nil
}

// Embedded returns the embedded NATS server, or nil.
func (t *Transport) Embedded() *EmbeddedServer { return t.server }

func (t *Transport) shutdownServer() {
	if t.server != nil {
		t.server.Shutdown()
		t.server = nil
	}
}

// Close closes the subscriber, the publisher and any embedded server.
func (t *Transport) Close() error {
	var errs []error
	if t.Subscriber != nil {
		if err := t.Subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	if t.Publisher != nil && !t.shared {
		if err := t.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	t.shutdownServer()
	return errors.Join(errs...)
}
