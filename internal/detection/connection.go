// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/protocol"
)

// ConnectionInfo is the immutable identity of a connection.
type ConnectionInfo struct {
	ID       uuid.UUID        `json:"id"`
	Handle   int32            `json:"handle"`
	Username string           `json:"username"`
	Version  protocol.Version `json:"version"`
	JoinedAt time.Time        `json:"joined_at"`
}

// TickMarker remembers the tick of the last occurrence of something.
// The zero value means it never happened.
type TickMarker struct {
	tick uint64
	set  bool
}

// Mark records tick.
func (m *TickMarker) Mark(tick uint64) {
	m.tick = tick
	m.set = true
}

// Tick returns the recorded tick and whether one was recorded.
func (m TickMarker) Tick() (uint64, bool) { return m.tick, m.set }

// Within reports whether the marker was set fewer than n ticks before now.
func (m TickMarker) Within(now, n uint64) bool {
	return m.set && now >= m.tick && now-m.tick < n
}

// At reports whether the marker was set on tick now.
func (m TickMarker) At(now uint64) bool {
	return m.set && m.tick == now
}

const maxPendingKeepAlives = 16

// Connection is the detection state of one live connection. Everything
// except the identity is owned by the goroutine processing the connection's
// packets.
type Connection struct {
	info ConnectionInfo

	// Rate-limit budget. PacketAllowance may go negative.
	PacketAllowance float64
	PacketCount     float64

	LastCraft     TickMarker
	LastBook      TickMarker
	LastDrop      TickMarker
	LastTeleport  TickMarker
	DropsThisTick int

	latency         time.Duration
	keepAlivesSent  map[int64]time.Time
	detectors       []Detector
	byKind          map[Kind]Detector
	inbound         map[protocol.Type][]InboundDetector
	outbound        map[protocol.Type][]OutboundDetector
	scores          map[Kind]float64
	alive           atomic.Bool
	mu              sync.Mutex // held for a whole dispatch, teardown or snapshot
	violationsTotal int
}

func newConnection(info ConnectionInfo) *Connection {
	c := &Connection{
		info:           info,
		keepAlivesSent: make(map[int64]time.Time),
		byKind:         make(map[Kind]Detector),
		inbound:        make(map[protocol.Type][]InboundDetector),
		outbound:       make(map[protocol.Type][]OutboundDetector),
		scores:         make(map[Kind]float64),
	}
	c.alive.Store(true)
	return c
}

// register adds d to the connection's routing tables in registration order.
func (c *Connection) register(d Detector) {
	c.detectors = append(c.detectors, d)
	c.byKind[d.Kind()] = d
	if in, ok := d.(InboundDetector); ok {
		for _, t := range in.Inbound() {
			c.inbound[t] = append(c.inbound[t], in)
		}
	}
	if out, ok := d.(OutboundDetector); ok {
		for _, t := range out.Outbound() {
			c.outbound[t] = append(c.outbound[t], out)
		}
	}
}

func (c *Connection) Info() ConnectionInfo { return c.info }
func (c *Connection) ID() uuid.UUID { return c.info.ID }
func (c *Connection) Username() string { return c.info.Username }
func (c *Connection) Version() protocol.Version { return c.info.Version }
func (c *Connection) JoinedAt() time.Time { return c.info.JoinedAt }

// Alive reports whether the connection has not been torn down.
func (c *Connection) Alive() bool { return c.alive.Load() }

// Score returns the running violation score of kind.
func (c *Connection) Score(kind Kind) float64 { return c.scores[kind] }

// Detector returns the detector instance of kind.
func (c *Connection) Detector(kind Kind) (Detector, bool) {
	d, ok := c.byKind[kind]
	return d, ok
}

// Latency returns the last measured keep-alive round trip.
func (c *Connection) Latency() time.Duration { return c.latency }

// observeKeepAlive tracks keep-alive round trips for latency.
func (c *Connection) observeKeepAlive(dir protocol.Direction, pk *protocol.Packet) {
	ka, err := protocol.Decode[protocol.KeepAliveID](pk)
	if err != nil {
		return
	}
	switch dir {
	case protocol.Outbound:
		if len(c.keepAlivesSent) >= maxPendingKeepAlives {
			clear(c.keepAlivesSent)
		}
		c.keepAlivesSent[ka.ID] = pk.ReceivedAt
	case protocol.Inbound:
		if sent, ok := c.keepAlivesSent[ka.ID]; ok {
			delete(c.keepAlivesSent, ka.ID)
			if rtt := pk.ReceivedAt.Sub(sent); rtt >= 0 {
				c.latency = rtt
			}
		}
	}
}

// ConnectionSnapshot is a point-in-time copy of a connection for the API.
type ConnectionSnapshot struct {
	ConnectionInfo
	PacketAllowance float64          `json:"packet_allowance"`
	PacketCount     float64          `json:"packet_count"`
	LatencyMillis   int64            `json:"latency_ms"`
	Scores          map[Kind]float64 `json:"scores"`
	Violations      int              `json:"violations"`
	Detectors       []Kind           `json:"detectors"`
}

// Snapshot copies the connection state. It waits for any dispatch in
// progress to finish.
func (c *Connection) Snapshot() ConnectionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	kinds := make([]Kind, 0, len(c.detectors))
	for _, d := range c.detectors {
		kinds = append(kinds, d.Kind())
	}
	return ConnectionSnapshot{
		ConnectionInfo:  c.info,
		PacketAllowance: c.PacketAllowance,
		PacketCount:     c.PacketCount,
		LatencyMillis:   c.latency.Milliseconds(),
		Scores:          maps.Clone(c.scores),
		Violations:      c.violationsTotal,
		Detectors:       kinds,
	}
}
