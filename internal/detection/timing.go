// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"time"

	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/protocol"
)

// TimingBalanceConfig configures the timing-balance detector. The constants
// are tuned against vanilla client cadence.
type TimingBalanceConfig struct {
	Grace         time.Duration `json:"grace"`
	CreditMillis  int64         `json:"credit_ms"`
	Ceiling       int64         `json:"ceiling"`
	Reset         int64         `json:"reset"`
	KickThreshold float64       `json:"kick_threshold"`
}

// DefaultTimingBalanceConfig returns the default timing-balance configuration.
func DefaultTimingBalanceConfig() TimingBalanceConfig {
	return TimingBalanceConfig{
		Grace:         time.Second,
		CreditMillis:  50,
		Ceiling:       0,
		Reset:         -50,
		KickThreshold: 200,
	}
}

func readTimingBalanceConfig(cfg config.Values) TimingBalanceConfig {
	d := DefaultTimingBalanceConfig()
	return TimingBalanceConfig{
		Grace:         cfg.Duration(configKey(KindTimingBalance, "grace"), d.Grace),
		CreditMillis:  int64(cfg.Int(configKey(KindTimingBalance, "credit_ms"), int(d.CreditMillis))),
		Ceiling:       int64(cfg.Int(configKey(KindTimingBalance, "ceiling"), int(d.Ceiling))),
		Reset:         int64(cfg.Int(configKey(KindTimingBalance, "reset"), int(d.Reset))),
		KickThreshold: cfg.Float64(configKey(KindTimingBalance, "kick_threshold"), d.KickThreshold),
	}
}

// TimingBalanceDetector integrates the gap between movement packets against
// the expected one-per-tick cadence. Every movement earns a credit and pays
// for the time since the previous one, so a client that sends movements
// faster than the tick rate drives the balance positive.
type TimingBalanceDetector struct {
	balance int64
	last    time.Time
	hasLast bool
}

// NewTimingBalanceDetector creates a timing-balance detector.
func NewTimingBalanceDetector(*Connection, config.Values) Detector {
	return &TimingBalanceDetector{}
}

func (d *TimingBalanceDetector) Kind() Kind { return KindTimingBalance }

func (d *TimingBalanceDetector) Inbound() []protocol.Type { return protocol.MovementTypes }

func (d *TimingBalanceDetector) Outbound() []protocol.Type {
	return []protocol.Type{protocol.ServerPositionCorrection}
}

// Balance returns the current balance in milliseconds.
func (d *TimingBalanceDetector) Balance() int64 { return d.balance }

func (d *TimingBalanceDetector) HandleInbound(c *Context, pk *protocol.Packet) error {
	cfg := readTimingBalanceConfig(c.Config)
	now := pk.ReceivedAt

	if c.SinceJoin() > cfg.Grace && d.hasLast {
		gap := now.Sub(d.last).Milliseconds()
		d.balance += cfg.CreditMillis - gap
	}
	d.last = now
	d.hasLast = true

	if d.balance <= cfg.Ceiling {
		return nil
	}

	debug := []DebugPair{Debug("balance", d.balance)}
	c.Report(d, Report{
		Description: "sent movement packets too quickly",
		Debug:       debug,
		Strategy:    StrategyMitigate,
	})
	if score := c.Conn.Score(KindTimingBalance); score > cfg.KickThreshold {
		c.Report(d, Report{
			Description: "repeatedly sent movement packets too quickly",
			Debug:       append(debug, Debug("score", score)),
			Strategy:    StrategyKick,
		})
	}
	d.balance = cfg.Reset
	return nil
}

// HandleOutbound compensates for the movement a position correction makes
// the client send early.
func (d *TimingBalanceDetector) HandleOutbound(c *Context, _ *protocol.Packet) error {
	d.balance -= readTimingBalanceConfig(c.Config).CreditMillis
	return nil
}
