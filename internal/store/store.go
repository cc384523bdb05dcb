// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/detection"
	"github.com/tomtom215/tickguard/internal/logging"
)

// Errors
var (
	// ErrNotFound is returned when an entry doesn't exist.
	ErrNotFound = errors.New("history entry not found")

	// ErrClosed is returned when the store is closed.
	ErrClosed = errors.New("history store is closed")
)

// Prefix keys for the entry and its secondary indexes
const (
	prefixEntry = "entry:"
	prefixID    = "id:"
	prefixConn  = "conn:"
)

// DefaultListLimit caps List when the filter sets no limit.
const DefaultListLimit = 100

// HistoryStore is a BadgerDB-backed violation history.
type HistoryStore struct {
	db        *badger.DB
	retention time.Duration

	mu     sync.RWMutex
	closed bool
}

// Filter selects history entries. Zero fields match everything.
type Filter struct {
	ConnectionID uuid.UUID
	Username     string
	Kind         detection.Kind
	MinStrategy  detection.Strategy
	Since        time.Time
	Until        time.Time
	Limit        int
}

// Open opens (or creates) the store described by cfg.
func Open(cfg config.StorageConfig) (*HistoryStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("storage path is required unless in_memory is set")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Dur("retention", cfg.Retention).
		Msg("history store opened")
	return &HistoryStore{db: db, retention: cfg.Retention}, nil
}

func entryKey(e detection.HistoryEntry) string {
	return fmt.Sprintf("%s%020d:%s", prefixEntry, e.Timestamp.UnixNano(), e.ID)
}

func connKey(e detection.HistoryEntry) string {
	return fmt.Sprintf("%s%s:%020d:%s", prefixConn, e.ConnectionID, e.Timestamp.UnixNano(), e.ID)
}

func (s *HistoryStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *HistoryStore) newEntry(key, value []byte) *badger.Entry {
	e := badger.NewEntry(key, value)
	if s.retention > 0 {
		e = e.WithTTL(s.retention)
	}
	return e
}

// Save persists e with its secondary indexes in one transaction.
func (s *HistoryStore) Save(ctx context.Context, e detection.HistoryEntry) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	key := []byte(entryKey(e))

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(s.newEntry(key, data)); err != nil {
			return err
		}
		if err := txn.SetEntry(s.newEntry([]byte(prefixID+e.ID.String()), key)); err != nil {
			return err
		}
		return txn.SetEntry(s.newEntry([]byte(connKey(e)), key))
	})
	if err != nil {
		return fmt.Errorf("write history entry: %w", err)
	}
	return nil
}

// Get returns the entry with id.
func (s *HistoryStore) Get(ctx context.Context, id uuid.UUID) (detection.HistoryEntry, error) {
	var entry detection.HistoryEntry
	if err := s.checkOpen(); err != nil {
		return entry, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		ref, err := txn.Get([]byte(prefixID + id.String()))
		if err != nil {
			return err
		}
		key, err := ref.ValueCopy(nil)
		if err != nil {
			return err
		}
		entry, err = readEntry(txn, key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return entry, ErrNotFound
	}
	if err != nil {
		return entry, fmt.Errorf("read history entry: %w", err)
	}
	return entry, nil
}

func readEntry(txn *badger.Txn, key []byte) (detection.HistoryEntry, error) {
	var entry detection.HistoryEntry
	item, err := txn.Get(key)
	if err != nil {
		return entry, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	})
	return entry, err
}

// List returns entries matching f, newest first.
func (s *HistoryStore) List(ctx context.Context, f Filter) ([]detection.HistoryEntry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	// Scanning the connection index avoids reading unrelated entries.
	prefix := []byte(prefixEntry)
	indexed := f.ConnectionID != uuid.Nil
	if indexed {
		prefix = []byte(prefixConn + f.ConnectionID.String() + ":")
	}

	entries := make([]detection.HistoryEntry, 0, min(limit, DefaultListLimit))
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var entry detection.HistoryEntry
			var err error
			if indexed {
				var key []byte
				key, err = it.Item().ValueCopy(nil)
				if err == nil {
					entry, err = readEntry(txn, key)
				}
			} else {
				err = it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entry)
				})
			}
			if err != nil {
				logging.Warn().Err(err).Str("key", string(it.Item().Key())).Msg("skipping unreadable history entry")
				continue
			}

			if !f.Until.IsZero() && entry.Timestamp.After(f.Until) {
				continue
			}
			if !f.Since.IsZero() && entry.Timestamp.Before(f.Since) {
				// Newest first: everything after this is older.
				break
			}
			if !f.matches(entry) {
				continue
			}
			entries = append(entries, entry)
			if len(entries) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	return entries, nil
}

func (f Filter) matches(e detection.HistoryEntry) bool {
	if f.Username != "" && !strings.EqualFold(f.Username, e.Username) {
		return false
	}
	if f.Kind != "" && f.Kind != e.Kind {
		return false
	}
	return e.Strategy.AtLeast(f.MinStrategy)
}

// Count returns the number of stored entries.
func (s *HistoryStore) Count(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixEntry)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count history entries: %w", err)
	}
	return n, nil
}

// RunGC triggers BadgerDB value log garbage collection until nothing is
// left to rewrite. It is a no-op for in-memory stores.
func (s *HistoryStore) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.db.Opts().InMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close closes the database. It is safe to call more than once.
func (s *HistoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
