// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"context"
	"time"

	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/logging"
	"github.com/tomtom215/tickguard/internal/protocol"
)

// Detector is the common contract of every detector. Kind is fixed per
// concrete type.
type Detector interface {
	Kind() Kind
}

// InboundDetector consumes client to server packets.
type InboundDetector interface {
	Detector
	// Inbound lists the packet types routed to HandleInbound.
	Inbound() []protocol.Type
	HandleInbound(c *Context, pk *protocol.Packet) error
}

// OutboundDetector consumes server to client packets.
type OutboundDetector interface {
	Detector
	// Outbound lists the packet types routed to HandleOutbound.
	Outbound() []protocol.Type
	HandleOutbound(c *Context, pk *protocol.Packet) error
}

// Factory builds the detector instance for one connection.
type Factory func(conn *Connection, cfg config.Values) Detector

// Catalog is the ordered set of detectors built for every connection.
type Catalog []Factory

// DefaultCatalog registers every built-in detector.
func DefaultCatalog() Catalog {
	return Catalog{
		NewRateLimitDetector,
		NewTimingBalanceDetector,
		NewPostOrderDetector,
		NewSignBoundsDetector,
	}
}

// configKey returns detection.<kind>.<name>.
func configKey(kind Kind, name string) string {
	return "detection." + string(kind) + "." + name
}

// Sender delivers packets to a client through the transport.
type Sender interface {
	Send(ctx context.Context, conn ConnectionInfo, pk protocol.Packet) error
}

// Context is handed to a detector for one packet. It is only valid for the
// duration of the call.
type Context struct {
	ctx       context.Context
	Conn      *Connection
	Tick      uint64
	Config    config.Values
	Packet    *protocol.Packet
	Direction protocol.Direction

	pipeline   *Pipeline
	sender     Sender
	violations []Violation
}

// Context returns the request context of the dispatch.
func (c *Context) Context() context.Context { return c.ctx }

// Now returns the time the current packet was received.
func (c *Context) Now() time.Time { return c.Packet.ReceivedAt }

// SinceJoin returns how long the connection had been open when the current
// packet arrived.
func (c *Context) SinceJoin() time.Duration {
	return c.Now().Sub(c.Conn.JoinedAt())
}

// Report records a violation by d for the current packet.
func (c *Context) Report(d Detector, r Report) Violation {
	v := c.pipeline.Report(c.Conn, d.Kind(), c.Tick, c.Packet.Type, r)
	c.violations = append(c.violations, v)
	return v
}

// Send asks the transport to deliver pk to the client. Failures are logged
// and never surface to the detector.
func (c *Context) Send(t protocol.Type, payload any) {
	if c.sender == nil {
		return
	}
	pk, err := protocol.New(t, payload)
	if err != nil {
		logging.Err(err).Str("packet", string(t)).Msg("failed to build outbound packet")
		return
	}
	if err := c.sender.Send(c.ctx, c.Conn.Info(), pk); err != nil {
		logging.Ctx(c.ctx).Warn().Err(err).Str("packet", string(t)).Msg("failed to send packet to client")
	}
}
