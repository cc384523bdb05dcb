// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"slices"
	"time"

	"github.com/tomtom215/tickguard/internal/cache"
	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/protocol"
)

// PostOrderConfig configures the post-ordering detector.
type PostOrderConfig struct {
	Grace         time.Duration `json:"grace"`
	TeleportTicks uint64        `json:"teleport_ticks"`
	KickThreshold float64       `json:"kick_threshold"`
}

// DefaultPostOrderConfig returns the default post-ordering configuration.
func DefaultPostOrderConfig() PostOrderConfig {
	return PostOrderConfig{
		Grace:         time.Second,
		TeleportTicks: 20,
		KickThreshold: 50,
	}
}

func readPostOrderConfig(cfg config.Values) PostOrderConfig {
	d := DefaultPostOrderConfig()
	return PostOrderConfig{
		Grace:         cfg.Duration(configKey(KindPostOrder, "grace"), d.Grace),
		TeleportTicks: uint64(max(cfg.Int(configKey(KindPostOrder, "teleport_ticks"), int(d.TeleportTicks)), 0)),
		KickThreshold: cfg.Float64(configKey(KindPostOrder, "kick_threshold"), d.KickThreshold),
	}
}

const (
	postOrderFlagCapacity = 10
	maxPendingActions     = 64
)

// PostOrderDetector catches action packets sent after the movement packet
// that ends a client tick. A vanilla client sends its actions before the
// movement, so an action following it without a round trip in between means
// the client is reordering its tick.
//
// After a movement, every tracked action triggers a ping. If the pong comes
// back before the next movement, the first action queued before it is
// flagged, and flags are reported on the following movement.
type PostOrderDetector struct {
	tracked      []protocol.Type
	pending      []protocol.Type
	flags        *cache.History[string]
	movementSeen bool
	pingID       int32
}

// NewPostOrderDetector creates a post-ordering detector. Window clicks are
// only tracked for clients known to be older than 1.9.
func NewPostOrderDetector(conn *Connection, _ config.Values) Detector {
	tracked := []protocol.Type{protocol.BlockPlace, protocol.UseItem}
	if v := conn.Version(); v != 0 && v.Before(protocol.V1_9) {
		tracked = append(tracked, protocol.ClickWindow)
	}
	return &PostOrderDetector{
		tracked: tracked,
		flags:   cache.NewHistory[string](postOrderFlagCapacity),
	}
}

func (d *PostOrderDetector) Kind() Kind { return KindPostOrder }

func (d *PostOrderDetector) Inbound() []protocol.Type {
	types := slices.Clone(protocol.MovementTypes)
	types = append(types, protocol.Pong)
	return append(types, d.tracked...)
}

// Flags returns the flagged packet names awaiting report, oldest first.
func (d *PostOrderDetector) Flags() []string { return d.flags.Slice() }

func (d *PostOrderDetector) HandleInbound(c *Context, pk *protocol.Packet) error {
	switch {
	case pk.Type.IsMovement():
		d.onMovement(c)
	case pk.Type == protocol.Pong:
		d.onPong()
	case slices.Contains(d.tracked, pk.Type):
		d.onAction(c, pk.Type)
	}
	return nil
}

func (d *PostOrderDetector) onMovement(c *Context) {
	if d.flags.Len() > 0 {
		cfg := readPostOrderConfig(c.Config)
		if c.SinceJoin() >= cfg.Grace && !c.Conn.LastTeleport.Within(c.Tick, cfg.TeleportTicks) {
			for name := range d.flags.All() {
				strategy := StrategyMitigate
				if c.Conn.Score(KindPostOrder) > cfg.KickThreshold {
					strategy = StrategyKick
				}
				c.Report(d, Report{
					Description: "sent " + name + " after movement",
					Debug:       []DebugPair{Debug("packet", name)},
					Strategy:    strategy,
				})
			}
		}
		d.flags.Clear()
	}
	d.pending = d.pending[:0]
	d.movementSeen = true
}

func (d *PostOrderDetector) onPong() {
	if d.movementSeen && len(d.pending) > 0 {
		d.flags.Push(string(d.pending[0]))
	}
	d.pending = d.pending[:0]
	d.movementSeen = false
}

func (d *PostOrderDetector) onAction(c *Context, t protocol.Type) {
	if !d.movementSeen {
		return
	}
	if len(d.pending) < maxPendingActions {
		d.pending = append(d.pending, t)
	}
	d.pingID++
	c.Send(protocol.ServerPing, protocol.RoundTrip{ID: d.pingID})
}
