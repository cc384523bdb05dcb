// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"unicode/utf8"

	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/protocol"
)

// DefaultMaxSignLineLength is the longest sign line a vanilla client can send.
const DefaultMaxSignLineLength = 45

// SignBoundsDetector validates the structure of sign updates. It keeps no
// state.
type SignBoundsDetector struct{}

// NewSignBoundsDetector creates a sign-bounds detector.
func NewSignBoundsDetector(*Connection, config.Values) Detector {
	return SignBoundsDetector{}
}

func (SignBoundsDetector) Kind() Kind { return KindSignBounds }

func (SignBoundsDetector) Inbound() []protocol.Type {
	return []protocol.Type{protocol.UpdateSign}
}

// HandleInbound reports undecodable updates and every line over the limit,
// both at ban severity.
func (d SignBoundsDetector) HandleInbound(c *Context, pk *protocol.Packet) error {
	sign, err := protocol.Decode[protocol.SignUpdate](pk)
	if err != nil {
		c.Report(d, Report{
			Description: "sent an undecodable sign update",
			Debug:       []DebugPair{Debug("error", err)},
			Strategy:    StrategyBan,
		})
		return nil
	}

	limit := c.Config.Int(configKey(KindSignBounds, "max_line_length"), DefaultMaxSignLineLength)
	for i, line := range sign.Lines {
		if n := utf8.RuneCountInString(line); n > limit {
			c.Report(d, Report{
				Description: "sent an oversized sign line",
				Debug: []DebugPair{
					Debug("line", i),
					Debug("length", n),
				},
				Strategy: StrategyBan,
			})
		}
	}
	return nil
}
