// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"tickguard.yaml",
	"tickguard.yml",
	"/etc/tickguard/tickguard.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "TICKGUARD_CONFIG"

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "TICKGUARD_"

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tick: TickConfig{
			Interval: 50 * time.Millisecond,
		},
		Detection: DetectionConfig{
			MalformedIsViolation: true,
			TombstoneTTL:         30 * time.Second,
			TombstoneCapacity:    10000,
		},
		Ingest: IngestConfig{
			Source:           "channel",
			NATSURL:          "nats://127.0.0.1:4222",
			EmbeddedNATS:     false,
			EmbeddedHost:     "127.0.0.1",
			EmbeddedPort:     4222,
			Topic:            "tickguard.packets",
			OutboundTopic:    "tickguard.outbound",
			EnforcementTopic: "tickguard.enforcement",
			QueueGroup:       "tickguard",
			SubscribersCount: 1,
			Shards:           16,
			ShardBuffer:      1024,
		},
		Notify: NotifyConfig{
			Buffer: 1024,
			Webhook: WebhookConfig{
				RateLimit:   time.Second,
				Timeout:     10 * time.Second,
				MinStrategy: "mitigate",
			},
			Discord: DiscordConfig{
				Username:    "Tickguard",
				RateLimit:   2 * time.Second,
				MinStrategy: "kick",
			},
			Breaker: BreakerConfig{
				MaxRequests:      1,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
		},
		Storage: StorageConfig{
			Path:      "/data/tickguard",
			Retention: 30 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            8645,
			Timeout:         30 * time.Second,
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
	}
}

func structsProvider() *structs.Structs {
	return structs.Provider(defaultConfig(), "koanf")
}

// Load reads configuration from defaults, the optional YAML file and the
// environment, validates it, and returns a Store holding the result.
func Load() (*Store, error) {
	path := findConfigFile()
	k, cfg, err := loadKoanf(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.snap.Store(&snapshot{k: k, cfg: cfg})
	return s, nil
}

// loadKoanf builds and validates one configuration snapshot.
func loadKoanf(path string) (*koanf.Koanf, *Config, error) {
	k := koanf.New(".")

	if err := k.Load(structsProvider(), nil); err != nil {
		return nil, nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return k, cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps TICKGUARD_DETECTION__RATE_LIMIT__ALLOWANCE_MAX to
// detection.rate_limit.allowance_max.
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, "__", ".")
}
