// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package config

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Values is the key/value view read by detectors at decision points.
// Every accessor returns def when the key is absent.
type Values interface {
	Bool(key string, def bool) bool
	Int(key string, def int) int
	Float64(key string, def float64) float64
	String(key string, def string) string
	Duration(key string, def time.Duration) time.Duration
}

type snapshot struct {
	k   *koanf.Koanf
	cfg *Config
}

// Store holds the current configuration snapshot. Reads are lock-free.
type Store struct {
	snap atomic.Pointer[snapshot]
	path string

	// reloadMu serializes reloads.
	reloadMu sync.Mutex
}

var _ Values = (*Store)(nil)

// NewStoreFromMap builds a Store from flat dotted keys layered over the
// defaults. It does not read files or the environment.
//
//	cfg := config.NewStoreFromMap(map[string]any{"detection.sign_bounds.enabled": false})
func NewStoreFromMap(values map[string]any) *Store {
	k := koanf.New(".")
	// Loading a struct of known types cannot fail.
	_ = k.Load(structsProvider(), nil)
	for key, v := range values {
		_ = k.Set(key, v)
	}
	cfg := &Config{}
	_ = k.Unmarshal("", cfg)

	s := &Store{}
	s.snap.Store(&snapshot{k: k, cfg: cfg})
	return s
}

// Config returns the typed configuration snapshot.
func (s *Store) Config() *Config {
	return s.snap.Load().cfg
}

// Path returns the config file in use, or "".
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Bool(key string, def bool) bool {
	k := s.snap.Load().k
	if !k.Exists(key) {
		return def
	}
	return k.Bool(key)
}

func (s *Store) Int(key string, def int) int {
	k := s.snap.Load().k
	if !k.Exists(key) {
		return def
	}
	return k.Int(key)
}

func (s *Store) Float64(key string, def float64) float64 {
	k := s.snap.Load().k
	if !k.Exists(key) {
		return def
	}
	return k.Float64(key)
}

func (s *Store) String(key string, def string) string {
	k := s.snap.Load().k
	if !k.Exists(key) {
		return def
	}
	return k.String(key)
}

func (s *Store) Duration(key string, def time.Duration) time.Duration {
	k := s.snap.Load().k
	switch v := k.Get(key).(type) {
	case nil:
		return def
	case time.Duration:
		return v
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return def
		}
		return d
	default:
		return time.Duration(k.Int64(key))
	}
}

// Reload rebuilds the snapshot from all sources. On error the previous
// snapshot stays in effect.
func (s *Store) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	k, cfg, err := loadKoanf(s.path)
	if err != nil {
		return err
	}
	s.snap.Store(&snapshot{k: k, cfg: cfg})
	return nil
}

// Watch reloads the configuration whenever the config file changes and calls
// onChange with the result of each attempt. It is a no-op without a file.
func (s *Store) Watch(onChange func(*Config, error)) error {
	if s.path == "" {
		return nil
	}
	provider := file.Provider(s.path)
	err := provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			onChange(nil, err)
			return
		}
		if err := s.Reload(); err != nil {
			onChange(nil, err)
			return
		}
		onChange(s.Config(), nil)
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}
	return nil
}
