// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package config

import "time"

// Config holds the typed process configuration.
type Config struct {
	Logging   LoggingConfig   `koanf:"logging"`
	Tick      TickConfig      `koanf:"tick"`
	Detection DetectionConfig `koanf:"detection"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Notify    NotifyConfig    `koanf:"notify"`
	Storage   StorageConfig   `koanf:"storage"`
	Server    ServerConfig    `koanf:"server"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// TickConfig configures the logical tick clock.
type TickConfig struct {
	// Interval is the protocol tick period. Default: 50ms.
	Interval time.Duration `koanf:"interval"`
}

// DetectionConfig holds the framework-level detection settings.
// Per-detector thresholds are read live under detection.<kind>.*.
type DetectionConfig struct {
	// MalformedIsViolation reports detector faults as ban-severity violations.
	MalformedIsViolation bool `koanf:"malformed_is_violation"`

	// TombstoneTTL is how long a closed connection ID keeps rejecting late packets.
	TombstoneTTL time.Duration `koanf:"tombstone_ttl"`

	// TombstoneCapacity bounds the tombstone cache.
	TombstoneCapacity int `koanf:"tombstone_capacity"`
}

// IngestConfig configures the packet feed.
type IngestConfig struct {
	// Source is "channel" (in-process) or "nats".
	Source string `koanf:"source"`

	NATSURL      string `koanf:"nats_url"`
	EmbeddedNATS bool   `koanf:"embedded_nats"`
	EmbeddedHost string `koanf:"embedded_host"`
	EmbeddedPort int    `koanf:"embedded_port"`

	Topic            string `koanf:"topic"`
	OutboundTopic    string `koanf:"outbound_topic"`
	EnforcementTopic string `koanf:"enforcement_topic"`
	QueueGroup       string `koanf:"queue_group"`
	SubscribersCount int    `koanf:"subscribers_count"`

	// Shards is the number of per-connection worker goroutines.
	Shards int `koanf:"shards"`

	// ShardBuffer is the queue depth of each shard.
	ShardBuffer int `koanf:"shard_buffer"`
}

// NotifyConfig configures the asynchronous alerting sinks.
type NotifyConfig struct {
	// Buffer is the per-topic queue depth of the in-process sink channel.
	Buffer int `koanf:"buffer"`

	Webhook WebhookConfig `koanf:"webhook"`
	Discord DiscordConfig `koanf:"discord"`
	Breaker BreakerConfig `koanf:"breaker"`
}

// WebhookConfig configures the generic JSON webhook notifier.
type WebhookConfig struct {
	Enabled     bool              `koanf:"enabled"`
	URL         string            `koanf:"url"`
	Headers     map[string]string `koanf:"headers"`
	RateLimit   time.Duration     `koanf:"rate_limit"`
	Timeout     time.Duration     `koanf:"timeout"`
	MinStrategy string            `koanf:"min_strategy"`
}

// DiscordConfig configures the Discord webhook notifier.
type DiscordConfig struct {
	Enabled     bool          `koanf:"enabled"`
	WebhookURL  string        `koanf:"webhook_url"`
	Username    string        `koanf:"username"`
	RateLimit   time.Duration `koanf:"rate_limit"`
	MinStrategy string        `koanf:"min_strategy"`
}

// BreakerConfig configures the circuit breaker in front of each notifier.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

// StorageConfig configures the violation history store.
type StorageConfig struct {
	Path      string        `koanf:"path"`
	InMemory  bool          `koanf:"in_memory"`
	Retention time.Duration `koanf:"retention"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}
