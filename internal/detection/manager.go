// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package detection

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/cache"
	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/eventbus"
	"github.com/tomtom215/tickguard/internal/logging"
	"github.com/tomtom215/tickguard/internal/metrics"
	"github.com/tomtom215/tickguard/internal/protocol"
	"github.com/tomtom215/tickguard/internal/tick"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Clock   tick.Source
	Config  config.Values
	Bus     *eventbus.Bus
	Sender  Sender
	Catalog Catalog

	// MalformedIsViolation is the default for detection.malformed_is_violation.
	MalformedIsViolation bool

	TombstoneTTL      time.Duration
	TombstoneCapacity int
}

// Manager owns every live Connection and dispatches packets to their
// detectors.
type Manager struct {
	clock     tick.Source
	cfg       config.Values
	bus       *eventbus.Bus
	sender    Sender
	catalog   Catalog
	pipeline  *Pipeline
	malformed bool
	now       func() time.Time

	mu    sync.RWMutex
	conns map[uuid.UUID]*Connection

	// tombstones remembers recently closed connections so late packets are
	// dropped as closed rather than unknown.
	tombstones *cache.TTLCache[uuid.UUID, time.Time]
	sweepEvery time.Duration
}

// NewManager creates a Manager. A nil Catalog selects DefaultCatalog.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.Bus == nil {
		cfg.Bus = eventbus.New()
	}
	if cfg.Config == nil {
		cfg.Config = config.NewStoreFromMap(nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = tick.New(0)
	}
	if cfg.TombstoneTTL <= 0 {
		cfg.TombstoneTTL = time.Minute
	}
	return &Manager{
		clock:      cfg.Clock,
		cfg:        cfg.Config,
		bus:        cfg.Bus,
		sender:     cfg.Sender,
		catalog:    cfg.Catalog,
		pipeline:   NewPipeline(cfg.Bus),
		malformed:  cfg.MalformedIsViolation,
		now:        time.Now,
		conns:      make(map[uuid.UUID]*Connection),
		tombstones: cache.NewTTLCache[uuid.UUID, time.Time](cfg.TombstoneCapacity, cfg.TombstoneTTL),
		sweepEvery: cfg.TombstoneTTL,
	}
}

// RunWithContext drops expired tombstones once per tombstone TTL until ctx
// is done.
func (m *Manager) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(m.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := m.tombstones.CleanupExpired(); n > 0 {
				logging.Debug().Int("removed", n).Msg("expired tombstones swept")
			}
		}
	}
}

// Bus returns the event bus violations are published on.
func (m *Manager) Bus() *eventbus.Bus { return m.bus }

// Open creates the state for a new connection and builds its detectors.
func (m *Manager) Open(ctx context.Context, info ConnectionInfo) (*Connection, error) {
	if info.ID == uuid.Nil {
		return nil, fmt.Errorf("connection id is required")
	}
	if info.JoinedAt.IsZero() {
		info.JoinedAt = m.now()
	}

	conn := newConnection(info)
	for _, factory := range m.catalog {
		conn.register(factory(conn, m.cfg))
	}

	m.mu.Lock()
	if _, exists := m.conns[info.ID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateConnection, info.ID)
	}
	m.conns[info.ID] = conn
	m.mu.Unlock()

	m.tombstones.Remove(info.ID)
	metrics.ConnectionsActive.Inc()
	logging.Ctx(ctx).Debug().
		Str("connection_id", info.ID.String()).
		Int("detectors", len(conn.detectors)).
		Msg("connection state created")
	m.bus.Publish(ConnectionOpened{Info: info})
	return conn, nil
}

// Close tears down a connection. Packets arriving for it afterwards are
// dropped.
func (m *Manager) Close(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	conn, ok := m.conns[id]
	delete(m.conns, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, id)
	}

	conn.mu.Lock()
	conn.alive.Store(false)
	scores := maps.Clone(conn.scores)
	conn.mu.Unlock()

	closedAt := m.now()
	m.tombstones.Add(id, closedAt)
	metrics.ConnectionsActive.Dec()
	m.bus.Publish(ConnectionClosed{
		ID:       id,
		Username: conn.Username(),
		ClosedAt: closedAt,
		Scores:   scores,
	})
	return nil
}

// CloseAll tears down every connection, for shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.RLock()
	ids := slices.Collect(maps.Keys(m.conns))
	m.mu.RUnlock()

	for _, id := range ids {
		if err := m.Close(ctx, id); err != nil {
			logging.Debug().Err(err).Msg("connection already closed during shutdown")
		}
	}
}

// Get returns the live connection with id.
func (m *Manager) Get(id uuid.UUID) (*Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.conns[id]
	return conn, ok
}

// Count returns the number of live connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Snapshots returns a copy of every live connection, ordered by join time.
func (m *Manager) Snapshots() []ConnectionSnapshot {
	m.mu.RLock()
	conns := slices.Collect(maps.Values(m.conns))
	m.mu.RUnlock()

	out := make([]ConnectionSnapshot, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.Snapshot())
	}
	slices.SortFunc(out, func(a, b ConnectionSnapshot) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})
	return out
}

// HandleInbound dispatches a client packet to the connection's detectors
// and returns the violations it produced.
func (m *Manager) HandleInbound(ctx context.Context, id uuid.UUID, pk *protocol.Packet) ([]Violation, error) {
	return m.dispatch(ctx, id, protocol.Inbound, pk)
}

// HandleOutbound dispatches a server packet to the connection's detectors.
func (m *Manager) HandleOutbound(ctx context.Context, id uuid.UUID, pk *protocol.Packet) ([]Violation, error) {
	return m.dispatch(ctx, id, protocol.Outbound, pk)
}

func (m *Manager) dispatch(ctx context.Context, id uuid.UUID, dir protocol.Direction, pk *protocol.Packet) ([]Violation, error) {
	conn, ok := m.Get(id)
	if !ok {
		return nil, m.dropMissing(ctx, id, pk)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	if !conn.alive.Load() {
		metrics.RecordDroppedPacket("closed")
		logging.Ctx(ctx).Debug().Str("packet", string(packetType(pk))).Msg("packet for torn-down connection dropped")
		return nil, fmt.Errorf("%w: %s", ErrConnectionClosed, id)
	}

	start := time.Now()
	if pk.ReceivedAt.IsZero() {
		pk.ReceivedAt = m.now()
	}
	current := m.clock.Current()
	m.observe(conn, dir, pk, current)

	dc := &Context{
		ctx:       logging.ContextWithConnection(ctx, id.String(), conn.Username()),
		Conn:      conn,
		Tick:      current,
		Config:    m.cfg,
		Packet:    pk,
		Direction: dir,
		pipeline:  m.pipeline,
		sender:    m.sender,
	}

	switch dir {
	case protocol.Inbound:
		for _, d := range conn.inbound[pk.Type] {
			if m.enabled(d.Kind()) {
				m.runInbound(dc, d)
			}
		}
	case protocol.Outbound:
		for _, d := range conn.outbound[pk.Type] {
			if m.enabled(d.Kind()) {
				m.runOutbound(dc, d)
			}
		}
	}

	metrics.RecordDispatch(string(dir), time.Since(start))
	return dc.violations, nil
}

func (m *Manager) dropMissing(ctx context.Context, id uuid.UUID, pk *protocol.Packet) error {
	if m.tombstones.Contains(id) {
		metrics.RecordDroppedPacket("closed")
		logging.Ctx(ctx).Debug().
			Str("connection_id", id.String()).
			Str("packet", string(packetType(pk))).
			Msg("late packet for closed connection dropped")
		return fmt.Errorf("%w: %s", ErrConnectionClosed, id)
	}
	metrics.RecordDroppedPacket("unknown")
	return fmt.Errorf("%w: %s", ErrUnknownConnection, id)
}

// observe keeps the framework-owned connection bookkeeping current before
// detectors run.
func (m *Manager) observe(conn *Connection, dir protocol.Direction, pk *protocol.Packet, current uint64) {
	switch pk.Type {
	case protocol.ServerPositionCorrection:
		conn.LastTeleport.Mark(current)
	case protocol.KeepAlive, protocol.ServerKeepAlive:
		conn.observeKeepAlive(dir, pk)
	}
}

func (m *Manager) enabled(kind Kind) bool {
	return m.cfg.Bool(configKey(kind, "enabled"), true)
}

func (m *Manager) runInbound(c *Context, d InboundDetector) {
	defer m.recoverDetector(c, d)
	if err := d.HandleInbound(c, c.Packet); err != nil {
		m.fault(c, d, err, false)
	}
}

func (m *Manager) runOutbound(c *Context, d OutboundDetector) {
	defer m.recoverDetector(c, d)
	if err := d.HandleOutbound(c, c.Packet); err != nil {
		m.fault(c, d, err, false)
	}
}

func (m *Manager) recoverDetector(c *Context, d Detector) {
	if r := recover(); r != nil {
		m.fault(c, d, fmt.Errorf("panic: %v", r), true)
	}
}

// fault handles a detector error or panic. Malformed client input is itself
// suspicious, so by default it becomes a ban-severity violation.
func (m *Manager) fault(c *Context, d Detector, err error, panicked bool) {
	metrics.RecordDetectorFault(string(d.Kind()), panicked)
	logging.Ctx(c.ctx).Warn().
		Err(err).
		Str("detector", string(d.Kind())).
		Str("packet", string(c.Packet.Type)).
		Bool("panic", panicked).
		Msg("detector fault recovered")

	if !m.cfg.Bool("detection.malformed_is_violation", m.malformed) {
		return
	}
	c.Report(d, Report{
		Description: "malformed " + strings.ReplaceAll(string(c.Packet.Type), "_", " ") + " packet",
		Debug:       []DebugPair{Debug("error", err)},
		Strategy:    StrategyBan,
	})
}
