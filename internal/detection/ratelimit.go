// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/protocol"
)

// RateLimitConfig configures the rate-limit detector.
type RateLimitConfig struct {
	MaxAllowance     float64 `json:"max_allowance"`
	AllowancePerTick float64 `json:"allowance_per_tick"`
	DecayPerTick     float64 `json:"decay_per_tick"`
	BookTicks        uint64  `json:"book_ticks"`
	CraftTicks       uint64  `json:"craft_ticks"`
	MaxDropsPerTick  int     `json:"max_drops_per_tick"`
}

// DefaultRateLimitConfig returns the default rate-limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAllowance:     500,
		AllowancePerTick: 25,
		DecayPerTick:     25,
		BookTicks:        20,
		CraftTicks:       10,
		MaxDropsPerTick:  20,
	}
}

// defaultWeights lists the packet types sent often enough by a legitimate
// client to count for half.
var defaultWeights = map[protocol.Type]float64{
	protocol.Position:         0.5,
	protocol.PositionRotation: 0.5,
	protocol.Rotation:         0.5,
	protocol.Flying:           0.5,
	protocol.Animation:        0.5,
}

func readRateLimitConfig(cfg config.Values) RateLimitConfig {
	d := DefaultRateLimitConfig()
	return RateLimitConfig{
		MaxAllowance:     cfg.Float64(configKey(KindRateLimit, "max_allowance"), d.MaxAllowance),
		AllowancePerTick: cfg.Float64(configKey(KindRateLimit, "allowance_per_tick"), d.AllowancePerTick),
		DecayPerTick:     cfg.Float64(configKey(KindRateLimit, "decay_per_tick"), d.DecayPerTick),
		BookTicks:        uint64(max(cfg.Int(configKey(KindRateLimit, "book_ticks"), int(d.BookTicks)), 0)),
		CraftTicks:       uint64(max(cfg.Int(configKey(KindRateLimit, "craft_ticks"), int(d.CraftTicks)), 0)),
		MaxDropsPerTick:  cfg.Int(configKey(KindRateLimit, "max_drops_per_tick"), d.MaxDropsPerTick),
	}
}

// weight returns the configured weight of t.
func weight(cfg config.Values, t protocol.Type) float64 {
	def, ok := defaultWeights[t]
	if !ok {
		def = 1.0
	}
	return cfg.Float64(configKey(KindRateLimit, "weights."+string(t)), def)
}

// RateLimitDetector is a leaking token bucket over every inbound packet, with
// per-action cooldowns for book edits, craft requests and item drops.
//
// The budget lives on the Connection (PacketAllowance, PacketCount); the
// detector only remembers when it last regenerated it.
type RateLimitDetector struct {
	lastTick uint64
	started  bool
}

// NewRateLimitDetector seeds conn with a full allowance.
func NewRateLimitDetector(conn *Connection, cfg config.Values) Detector {
	conn.PacketAllowance = readRateLimitConfig(cfg).MaxAllowance
	conn.PacketCount = 0
	return &RateLimitDetector{}
}

func (d *RateLimitDetector) Kind() Kind { return KindRateLimit }

// Inbound returns every client packet type.
func (d *RateLimitDetector) Inbound() []protocol.Type {
	return protocol.Types(protocol.Inbound)
}

func (d *RateLimitDetector) HandleInbound(c *Context, pk *protocol.Packet) error {
	cfg := readRateLimitConfig(c.Config)
	conn := c.Conn

	d.regenerate(conn, cfg, c.Tick)

	conn.PacketCount += weight(c.Config, pk.Type)
	if conn.PacketCount > conn.PacketAllowance {
		c.Report(d, Report{
			Description: "sent too many packets",
			Debug: []DebugPair{
				Debug("count", conn.PacketCount),
				Debug("allowance", conn.PacketAllowance),
			},
			Strategy: StrategyKick,
		})
	} else {
		conn.PacketAllowance--
	}

	switch pk.Type {
	case protocol.EditBook:
		if conn.LastBook.Within(c.Tick, cfg.BookTicks) {
			c.Report(d, Report{
				Description: "edited books too quickly",
				Debug:       sinceDebug(conn.LastBook, c.Tick),
				Strategy:    StrategyKick,
			})
		}
		conn.LastBook.Mark(c.Tick)

	case protocol.CraftRecipeRequest:
		if conn.LastCraft.Within(c.Tick, cfg.CraftTicks) {
			c.Report(d, Report{
				Description: "requested crafting recipes too quickly",
				Debug:       sinceDebug(conn.LastCraft, c.Tick),
				Strategy:    StrategyMitigate,
			})
			c.Send(protocol.ServerInventoryResync, protocol.InventoryResync{})
		}
		conn.LastCraft.Mark(c.Tick)

	case protocol.PlayerDigging:
		return d.handleDigging(c, pk, cfg)
	}
	return nil
}

func (d *RateLimitDetector) handleDigging(c *Context, pk *protocol.Packet, cfg RateLimitConfig) error {
	dig, err := protocol.Decode[protocol.Digging](pk)
	if err != nil {
		return err
	}
	if !dig.Action.IsDrop() {
		return nil
	}

	conn := c.Conn
	if !conn.LastDrop.At(c.Tick) {
		conn.DropsThisTick = 0
	}
	conn.LastDrop.Mark(c.Tick)
	conn.DropsThisTick++

	if conn.DropsThisTick > cfg.MaxDropsPerTick {
		c.Report(d, Report{
			Description: "dropped too many items in one tick",
			Debug: []DebugPair{
				Debug("drops", conn.DropsThisTick),
				Debug("max", cfg.MaxDropsPerTick),
			},
			Strategy: StrategyKick,
		})
	}
	return nil
}

// regenerate refills the allowance and drains the count for every tick that
// passed since the previous packet.
func (d *RateLimitDetector) regenerate(conn *Connection, cfg RateLimitConfig, now uint64) {
	if !d.started {
		d.started = true
		d.lastTick = now
		return
	}
	if now <= d.lastTick {
		return
	}
	elapsed := float64(now - d.lastTick)
	d.lastTick = now

	conn.PacketAllowance = min(cfg.MaxAllowance, conn.PacketAllowance+elapsed*cfg.AllowancePerTick)
	conn.PacketCount = max(0, conn.PacketCount-elapsed*cfg.DecayPerTick)
}

func sinceDebug(m TickMarker, now uint64) []DebugPair {
	last, ok := m.Tick()
	if !ok {
		return nil
	}
	return []DebugPair{Debug("ticks_since", now-last)}
}
