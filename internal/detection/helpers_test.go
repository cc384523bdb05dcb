// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/eventbus"
	"github.com/tomtom215/tickguard/internal/protocol"
	"github.com/tomtom215/tickguard/internal/tick"
)

var testJoinTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type sentPacket struct {
	conn ConnectionInfo
	pk   protocol.Packet
}

// mockSender records packets sent to clients.
type mockSender struct {
	mu   sync.Mutex
	sent []sentPacket
	err  error
}

func (m *mockSender) Send(_ context.Context, conn ConnectionInfo, pk protocol.Packet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentPacket{conn: conn, pk: pk})
	return m.err
}

func (m *mockSender) count(t protocol.Type) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.pk.Type == t {
			n++
		}
	}
	return n
}

func (m *mockSender) last() (sentPacket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentPacket{}, false
	}
	return m.sent[len(m.sent)-1], true
}

type testEnv struct {
	mgr    *Manager
	clock  *tick.Clock
	sender *mockSender
	bus    *eventbus.Bus
	conn   *Connection
}

type envOption func(*ManagerConfig, *ConnectionInfo)

func withVersion(v protocol.Version) envOption {
	return func(_ *ManagerConfig, info *ConnectionInfo) { info.Version = v }
}

func withCatalog(c Catalog) envOption {
	return func(cfg *ManagerConfig, _ *ConnectionInfo) { cfg.Catalog = c }
}

// newTestEnv opens one connection joined at testJoinTime with the given
// configuration overrides.
func newTestEnv(t *testing.T, values map[string]any, opts ...envOption) *testEnv {
	t.Helper()

	env := &testEnv{
		clock:  tick.New(0),
		sender: &mockSender{},
		bus:    eventbus.New(),
	}
	mc := ManagerConfig{
		Clock:                env.clock,
		Config:               config.NewStoreFromMap(values),
		Bus:                  env.bus,
		Sender:               env.sender,
		MalformedIsViolation: true,
	}
	info := ConnectionInfo{
		ID:       uuid.New(),
		Handle:   1,
		Username: "steve",
		Version:  protocol.V1_20_4,
		JoinedAt: testJoinTime,
	}
	for _, o := range opts {
		o(&mc, &info)
	}
	env.mgr = NewManager(mc)

	conn, err := env.mgr.Open(context.Background(), info)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	env.conn = conn
	return env
}

func mustPacket(t *testing.T, typ protocol.Type, payload any, at time.Time) *protocol.Packet {
	t.Helper()
	pk, err := protocol.New(typ, payload)
	if err != nil {
		t.Fatalf("protocol.New(%s) error = %v", typ, err)
	}
	pk.ReceivedAt = at
	return &pk
}

// in dispatches an inbound packet received at `at`.
func (e *testEnv) in(t *testing.T, typ protocol.Type, payload any, at time.Time) []Violation {
	t.Helper()
	vs, err := e.mgr.HandleInbound(context.Background(), e.conn.ID(), mustPacket(t, typ, payload, at))
	if err != nil {
		t.Fatalf("HandleInbound(%s) error = %v", typ, err)
	}
	return vs
}

func (e *testEnv) out(t *testing.T, typ protocol.Type, payload any, at time.Time) []Violation {
	t.Helper()
	vs, err := e.mgr.HandleOutbound(context.Background(), e.conn.ID(), mustPacket(t, typ, payload, at))
	if err != nil {
		t.Fatalf("HandleOutbound(%s) error = %v", typ, err)
	}
	return vs
}

func (e *testEnv) advance(n int) {
	for range n {
		e.clock.Advance()
	}
}

// only returns the configuration that disables every detector except kind.
func only(kind Kind, values map[string]any) map[string]any {
	out := map[string]any{}
	for _, k := range Kinds() {
		if k != kind {
			out[configKey(k, "enabled")] = false
		}
	}
	for k, v := range values {
		out[k] = v
	}
	return out
}

func countStrategy(vs []Violation, s Strategy) int {
	n := 0
	for _, v := range vs {
		if v.Strategy() == s {
			n++
		}
	}
	return n
}

// recorder collects bus events in delivery order.
type recorder struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func record(bus *eventbus.Bus, kinds ...eventbus.Kind) *recorder {
	r := &recorder{}
	for _, k := range kinds {
		bus.Subscribe(k, func(ev eventbus.Event) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		}, eventbus.Normal)
	}
	return r
}

func (r *recorder) all() []eventbus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]eventbus.Event(nil), r.events...)
}
