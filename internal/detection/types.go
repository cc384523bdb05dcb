// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/protocol"
)

// Sentinel errors returned by the Manager.
var (
	ErrConnectionClosed    = errors.New("connection closed")
	ErrUnknownConnection   = errors.New("unknown connection")
	ErrDuplicateConnection = errors.New("connection already open")
)

// Kind identifies a detector family.
type Kind string

const (
	KindRateLimit     Kind = "rate_limit"
	KindTimingBalance Kind = "timing_balance"
	KindPostOrder     Kind = "post_order"
	KindSignBounds    Kind = "sign_bounds"
)

// Kinds lists every detector kind.
func Kinds() []Kind {
	return []Kind{KindRateLimit, KindTimingBalance, KindPostOrder, KindSignBounds}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindRateLimit, KindTimingBalance, KindPostOrder, KindSignBounds:
		return true
	}
	return false
}

// Strategy is the mitigation chosen for a violation. Higher is more severe.
type Strategy int

const (
	// StrategyUnset is replaced with StrategyMitigate by the pipeline.
	StrategyUnset Strategy = iota
	StrategyMitigate
	StrategyKick
	StrategyBan
)

func (s Strategy) String() string {
	switch s {
	case StrategyMitigate:
		return "mitigate"
	case StrategyKick:
		return "kick"
	case StrategyBan:
		return "ban"
	default:
		return "unset"
	}
}

// Verb is the past-tense form used in alert text.
func (s Strategy) Verb() string {
	switch s {
	case StrategyKick:
		return "kicked"
	case StrategyBan:
		return "banned"
	default:
		return "mitigated"
	}
}

// HistoryLabel is the label stored with history entries.
func (s Strategy) HistoryLabel() string {
	switch s {
	case StrategyKick:
		return "KICK"
	case StrategyBan:
		return "BAN"
	default:
		return "MITIGATE"
	}
}

// AtLeast reports whether s is as severe as o.
func (s Strategy) AtLeast(o Strategy) bool { return s >= o }

// ParseStrategy parses a strategy name. The empty string is StrategyMitigate.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mitigate":
		return StrategyMitigate, nil
	case "kick":
		return StrategyKick, nil
	case "ban":
		return StrategyBan, nil
	default:
		return StrategyUnset, fmt.Errorf("unknown strategy %q", s)
	}
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(b []byte) error {
	parsed, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// DebugPair is one ordered name/value detail attached to a violation.
type DebugPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Debug formats value as a DebugPair.
func Debug(name string, value any) DebugPair {
	switch v := value.(type) {
	case string:
		return DebugPair{Name: name, Value: v}
	case float64:
		return DebugPair{Name: name, Value: strconv.FormatFloat(v, 'f', -1, 64)}
	case int:
		return DebugPair{Name: name, Value: strconv.Itoa(v)}
	case int64:
		return DebugPair{Name: name, Value: strconv.FormatInt(v, 10)}
	case uint64:
		return DebugPair{Name: name, Value: strconv.FormatUint(v, 10)}
	case error:
		return DebugPair{Name: name, Value: v.Error()}
	default:
		return DebugPair{Name: name, Value: fmt.Sprint(v)}
	}
}

// Report is what a detector hands to Context.Report.
type Report struct {
	Description string
	Debug       []DebugPair
	Strategy    Strategy
}

// DefaultDescription replaces an empty Report.Description.
const DefaultDescription = "no description provided"

// Violation is the immutable record of one detected anomaly.
type Violation struct {
	id           uuid.UUID
	kind         Kind
	connectionID uuid.UUID
	username     string
	description  string
	debug        []DebugPair
	strategy     Strategy
	score        float64
	tick         uint64
	packet       protocol.Type
	createdAt    time.Time
	version      protocol.Version
	latency      time.Duration
}

func (v Violation) ID() uuid.UUID { return v.id }
func (v Violation) Kind() Kind { return v.kind }
func (v Violation) ConnectionID() uuid.UUID { return v.connectionID }
func (v Violation) Username() string { return v.username }
func (v Violation) Description() string { return v.description }
func (v Violation) Strategy() Strategy { return v.strategy }
func (v Violation) Score() float64 { return v.score }
func (v Violation) Tick() uint64 { return v.tick }
func (v Violation) Packet() protocol.Type { return v.packet }
func (v Violation) CreatedAt() time.Time { return v.createdAt }
func (v Violation) Version() protocol.Version { return v.version }
func (v Violation) Latency() time.Duration { return v.latency }
func (v Violation) Debug() []DebugPair { return append([]DebugPair(nil), v.debug...) }

// DebugValue returns the value of the first debug pair called name.
func (v Violation) DebugValue(name string) (string, bool) {
	for _, p := range v.debug {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// ViolationRecord is the detached, serializable form of a Violation used by
// sinks and the API.
type ViolationRecord struct {
	ID            uuid.UUID     `json:"id"`
	Kind          Kind          `json:"kind"`
	ConnectionID  uuid.UUID     `json:"connection_id"`
	Username      string        `json:"username"`
	Description   string        `json:"description"`
	Debug         []DebugPair   `json:"debug,omitempty"`
	Strategy      Strategy      `json:"strategy"`
	Score         float64       `json:"score"`
	Tick          uint64        `json:"tick"`
	Packet        protocol.Type `json:"packet"`
	CreatedAt     time.Time     `json:"created_at"`
	ClientVersion int32         `json:"client_version"`
	LatencyMillis int64         `json:"latency_ms"`
}

// Record returns a detached copy of v.
func (v Violation) Record() ViolationRecord {
	return ViolationRecord{
		ID:            v.id,
		Kind:          v.kind,
		ConnectionID:  v.connectionID,
		Username:      v.username,
		Description:   v.description,
		Debug:         v.Debug(),
		Strategy:      v.strategy,
		Score:         v.score,
		Tick:          v.tick,
		Packet:        v.packet,
		CreatedAt:     v.createdAt,
		ClientVersion: int32(v.version),
		LatencyMillis: v.latency.Milliseconds(),
	}
}

func (v Violation) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Record())
}
