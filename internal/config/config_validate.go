// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTick(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateNotify(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTick() error {
	if c.Tick.Interval < time.Millisecond {
		return fmt.Errorf("tick.interval must be at least 1ms, got %s", c.Tick.Interval)
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.TombstoneTTL < 0 {
		return fmt.Errorf("detection.tombstone_ttl must not be negative")
	}
	if c.Detection.TombstoneCapacity < 1 {
		return fmt.Errorf("detection.tombstone_capacity must be positive")
	}
	return nil
}

func (c *Config) validateIngest() error {
	switch c.Ingest.Source {
	case "channel":
	case "nats":
		if !c.Ingest.EmbeddedNATS {
			if err := validateNATSURL(c.Ingest.NATSURL); err != nil {
				return fmt.Errorf("ingest.nats_url is invalid: %w", err)
			}
		}
		if c.Ingest.EmbeddedNATS && (c.Ingest.EmbeddedPort < 1 || c.Ingest.EmbeddedPort > 65535) {
			return fmt.Errorf("ingest.embedded_port must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("ingest.source must be 'channel' or 'nats', got %q", c.Ingest.Source)
	}
	if c.Ingest.Topic == "" {
		return fmt.Errorf("ingest.topic is required")
	}
	if c.Ingest.Shards < 1 {
		return fmt.Errorf("ingest.shards must be positive")
	}
	if c.Ingest.ShardBuffer < 1 {
		return fmt.Errorf("ingest.shard_buffer must be positive")
	}
	return nil
}

func (c *Config) validateNotify() error {
	if c.Notify.Buffer < 1 {
		return fmt.Errorf("notify.buffer must be positive")
	}
	if c.Notify.Webhook.Enabled {
		if err := validateHTTPURL(c.Notify.Webhook.URL); err != nil {
			return fmt.Errorf("notify.webhook.url is invalid: %w", err)
		}
	}
	if c.Notify.Discord.Enabled {
		if err := validateHTTPURL(c.Notify.Discord.WebhookURL); err != nil {
			return fmt.Errorf("notify.discord.webhook_url is invalid: %w", err)
		}
	}
	for name, s := range map[string]string{
		"notify.webhook.min_strategy": c.Notify.Webhook.MinStrategy,
		"notify.discord.min_strategy": c.Notify.Discord.MinStrategy,
	} {
		switch strings.ToLower(s) {
		case "", "mitigate", "kick", "ban":
		default:
			return fmt.Errorf("%s must be one of mitigate, kick, ban; got %q", name, s)
		}
	}
	if c.Notify.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("notify.breaker.failure_threshold must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("server.rate_limit_reqs must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "disabled", "off":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func validateNATSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "nats" && u.Scheme != "tls" {
		return fmt.Errorf("scheme must be nats or tls")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
