// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// ErrMalformed is returned when a payload cannot be decoded.
var ErrMalformed = errors.New("malformed payload")

// Packet is one decoded message in a connection's stream.
type Packet struct {
	Type       Type            `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Decode unmarshals the payload of p into T.
func Decode[T any](p *Packet) (T, error) {
	var v T
	if len(p.Payload) == 0 {
		return v, fmt.Errorf("%w: %s has no payload", ErrMalformed, p.Type)
	}
	if err := json.Unmarshal(p.Payload, &v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", ErrMalformed, p.Type, err)
	}
	return v, nil
}

// New builds a packet of type t carrying payload. A nil payload leaves the
// packet empty.
func New(t Type, payload any) (Packet, error) {
	pk := Packet{Type: t, ReceivedAt: time.Now()}
	if payload == nil {
		return pk, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Packet{}, fmt.Errorf("failed to encode %s payload: %w", t, err)
	}
	pk.Payload = raw
	return pk, nil
}

// SignUpdate is the payload of UpdateSign.
type SignUpdate struct {
	X     int32    `json:"x"`
	Y     int32    `json:"y"`
	Z     int32    `json:"z"`
	Front bool     `json:"front,omitempty"`
	Lines []string `json:"lines"`
}

// DiggingAction is the action field of PlayerDigging.
type DiggingAction string

const (
	DiggingStart         DiggingAction = "start_digging"
	DiggingCancel        DiggingAction = "cancel_digging"
	DiggingFinish        DiggingAction = "finish_digging"
	DiggingDropItemStack DiggingAction = "drop_item_stack"
	DiggingDropItem      DiggingAction = "drop_item"
	DiggingReleaseUse    DiggingAction = "release_use_item"
	DiggingSwapHands     DiggingAction = "swap_item_in_hand"
)

// IsDrop reports whether the action drops items.
func (a DiggingAction) IsDrop() bool {
	return a == DiggingDropItem || a == DiggingDropItemStack
}

// Digging is the payload of PlayerDigging.
type Digging struct {
	Action DiggingAction `json:"action"`
	X      int32         `json:"x"`
	Y      int32         `json:"y"`
	Z      int32         `json:"z"`
	Face   int8          `json:"face"`
}

// RoundTrip is the payload of ServerPing and Pong.
type RoundTrip struct {
	ID int32 `json:"id"`
}

// KeepAliveID is the payload of KeepAlive and ServerKeepAlive.
type KeepAliveID struct {
	ID int64 `json:"id"`
}

// PositionCorrection is the payload of ServerPositionCorrection.
type PositionCorrection struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Yaw        float32 `json:"yaw"`
	Pitch      float32 `json:"pitch"`
	TeleportID int32   `json:"teleport_id"`
}

// InventoryResync is the payload of ServerInventoryResync.
type InventoryResync struct {
	WindowID int32 `json:"window_id"`
}
