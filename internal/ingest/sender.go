// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package ingest

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/detection"
	"github.com/tomtom215/tickguard/internal/protocol"
)

// MetadataConnectionID is the message metadata key carrying the connection.
const MetadataConnectionID = "connection_id"

// OutboundMessage is a packet the proxy should deliver to a client.
type OutboundMessage struct {
	ConnectionID uuid.UUID       `json:"connection_id"`
	Handle       int32           `json:"handle"`
	Username     string          `json:"username"`
	Packet       protocol.Packet `json:"packet"`
}

// Sender publishes detector packets to the outbound topic.
type Sender struct {
	publisher message.Publisher
	topic     string
}

var _ detection.Sender = (*Sender)(nil)

// NewSender creates a sender publishing to topic.
func NewSender(publisher message.Publisher, topic string) *Sender {
	return &Sender{publisher: publisher, topic: topic}
}

// Send publishes pk addressed to conn.
func (s *Sender) Send(ctx context.Context, conn detection.ConnectionInfo, pk protocol.Packet) error {
	data, err := json.Marshal(OutboundMessage{
		ConnectionID: conn.ID,
		Handle:       conn.Handle,
		Username:     conn.Username,
		Packet:       pk,
	})
	if err != nil {
		return fmt.Errorf("failed to encode outbound packet: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(MetadataConnectionID, conn.ID.String())
	msg.Metadata.Set("packet_type", string(pk.Type))
	msg.SetContext(ctx)

	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", pk.Type, s.topic, err)
	}
	return nil
}
