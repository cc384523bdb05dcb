// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package ingest

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/detection"
	"github.com/tomtom215/tickguard/internal/eventbus"
	"github.com/tomtom215/tickguard/internal/logging"
)

// Enforcement is a kick or ban decision for the proxy to carry out.
type Enforcement struct {
	ViolationID  uuid.UUID          `json:"violation_id"`
	ConnectionID uuid.UUID          `json:"connection_id"`
	Username     string             `json:"username"`
	Action       detection.Strategy `json:"action"`
	Kind         detection.Kind     `json:"kind"`
	Reason       string             `json:"reason"`
	DecidedAt    time.Time          `json:"decided_at"`
}

// Announcer publishes enforcement decisions.
type Announcer struct {
	publisher message.Publisher
	topic     string
}

// NewAnnouncer creates an announcer publishing to topic.
func NewAnnouncer(publisher message.Publisher, topic string) *Announcer {
	return &Announcer{publisher: publisher, topic: topic}
}

// Subscribe announces every kick and ban violation published on bus.
func (a *Announcer) Subscribe(bus *eventbus.Bus) (unsubscribe func()) {
	return eventbus.On(bus, eventbus.High, func(e detection.ViolationEvent) {
		if e.Violation.Strategy().AtLeast(detection.StrategyKick) {
			a.announce(e.Violation)
		}
	})
}

func (a *Announcer) announce(v detection.Violation) {
	data, err := json.Marshal(Enforcement{
		ViolationID:  v.ID(),
		ConnectionID: v.ConnectionID(),
		Username:     v.Username(),
		Action:       v.Strategy(),
		Kind:         v.Kind(),
		Reason:       v.Description(),
		DecidedAt:    v.CreatedAt(),
	})
	if err != nil {
		logging.Err(err).Str("violation_id", v.ID().String()).Msg("failed to encode enforcement")
		return
	}

	// The violation ID doubles as message UUID so consumers can deduplicate.
	msg := message.NewMessage(v.ID().String(), data)
	msg.Metadata.Set(MetadataConnectionID, v.ConnectionID().String())
	if err := a.publisher.Publish(a.topic, msg); err != nil {
		logging.Err(err).
			Str("violation_id", v.ID().String()).
			Str("action", v.Strategy().String()).
			Msg("failed to publish enforcement")
		return
	}
	logging.Info().
		Str("connection_id", v.ConnectionID().String()).
		Str("username", v.Username()).
		Str("action", v.Strategy().String()).
		Str("kind", string(v.Kind())).
		Msg("enforcement announced")
}
