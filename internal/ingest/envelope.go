// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/detection"
	"github.com/tomtom215/tickguard/internal/protocol"
)

// ErrInvalidEnvelope is returned when an envelope cannot be routed.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// EnvelopeKind is the lifecycle step an envelope carries.
type EnvelopeKind string

const (
	KindOpen   EnvelopeKind = "open"
	KindPacket EnvelopeKind = "packet"
	KindClose  EnvelopeKind = "close"
)

// Envelope is one message of the ingest feed.
type Envelope struct {
	Kind         EnvelopeKind       `json:"kind"`
	ConnectionID uuid.UUID          `json:"connection_id"`
	Username     string             `json:"username,omitempty"`
	Handle       int32              `json:"handle,omitempty"`
	Version      protocol.Version   `json:"version,omitempty"`
	Direction    protocol.Direction `json:"direction,omitempty"`
	Packet       *protocol.Packet   `json:"packet,omitempty"`

	// receivedAt is when the envelope was read off the transport.
	receivedAt time.Time
}

// DecodeEnvelope parses and validates one envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if err := env.Validate(); err != nil {
		return env, err
	}
	return env, nil
}

// Validate checks that the envelope can be routed to a connection.
// Packet payloads are not inspected here; detectors report malformed
// payloads against the connection.
func (e Envelope) Validate() error {
	if e.ConnectionID == uuid.Nil {
		return fmt.Errorf("%w: missing connection_id", ErrInvalidEnvelope)
	}
	switch e.Kind {
	case KindOpen, KindClose:
		return nil
	case KindPacket:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEnvelope, e.Kind)
	}

	if !e.Direction.Valid() {
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidEnvelope, e.Direction)
	}
	if e.Packet == nil {
		return fmt.Errorf("%w: packet envelope without packet", ErrInvalidEnvelope)
	}
	if e.Packet.Type.Valid() && e.Packet.Type.Direction() != e.Direction {
		return fmt.Errorf("%w: %s is not an %s packet", ErrInvalidEnvelope, e.Packet.Type, e.Direction)
	}
	return nil
}

// stamp records the arrival time of e. A packet without its own timestamp
// takes the arrival time, so time spent queued on a shard does not shrink
// the gaps between packets.
func (e *Envelope) stamp(now time.Time) {
	e.receivedAt = now
	if e.Packet != nil && e.Packet.ReceivedAt.IsZero() {
		e.Packet.ReceivedAt = now
	}
}

// Info returns the connection identity carried by an open envelope.
func (e Envelope) Info(joinedAt time.Time) detection.ConnectionInfo {
	return detection.ConnectionInfo{
		ID:       e.ConnectionID,
		Handle:   e.Handle,
		Username: e.Username,
		Version:  e.Version,
		JoinedAt: joinedAt,
	}
}

// Encode serializes e.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}
