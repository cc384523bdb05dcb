// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/detection"
)

// Discord allows 25 fields per embed; the fixed fields take 5.
const maxDebugFields = 20

// DiscordNotifier sends alerts to Discord via webhooks.
type DiscordNotifier struct {
	webhookURL string
	username   string
	client     *http.Client
	enabled    bool
	limiter    *rate.Limiter
	mu         sync.RWMutex
}

// NewDiscordNotifier creates a new Discord notifier.
func NewDiscordNotifier(cfg config.DiscordConfig) *DiscordNotifier {
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = time.Second
	}

	return &DiscordNotifier{
		webhookURL: cfg.WebhookURL,
		username:   cfg.Username,
		enabled:    cfg.Enabled,
		limiter:    rate.NewLimiter(rate.Every(rateLimit), 1),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the notifier name.
func (n *DiscordNotifier) Name() string {
	return "discord"
}

// Enabled returns whether this notifier is enabled.
func (n *DiscordNotifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && n.webhookURL != ""
}

// SetEnabled enables or disables the notifier.
func (n *DiscordNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Send delivers an alert to Discord.
func (n *DiscordNotifier) Send(ctx context.Context, alert *Alert) error {
	n.mu.RLock()
	if !n.enabled || n.webhookURL == "" {
		n.mu.RUnlock()
		return nil
	}
	webhookURL := n.webhookURL
	username := n.username
	n.mu.RUnlock()

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("discord rate limit wait: %w", err)
	}

	payload := discordWebhookPayload{
		Username: username,
		Embeds:   []discordEmbed{n.buildEmbed(alert)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create Discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Discord webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// buildEmbed creates a Discord embed from an alert.
func (n *DiscordNotifier) buildEmbed(alert *Alert) discordEmbed {
	v := alert.Violation

	fields := []discordEmbedField{
		{Name: "Player", Value: v.Username, Inline: true},
		{Name: "Strategy", Value: v.Strategy.HistoryLabel(), Inline: true},
		{Name: "Detector", Value: string(v.Kind), Inline: true},
		{Name: "Score", Value: strconv.FormatFloat(v.Score, 'f', -1, 64), Inline: true},
		{Name: "Latency", Value: strconv.FormatInt(v.LatencyMillis, 10) + "ms", Inline: true},
	}
	for i, d := range v.Debug {
		if i == maxDebugFields {
			break
		}
		fields = append(fields, discordEmbedField{Name: d.Name, Value: d.Value, Inline: true})
	}

	return discordEmbed{
		Title:       alert.Title,
		Description: alert.Message,
		Color:       strategyColor(v.Strategy),
		Timestamp:   v.CreatedAt.Format(time.RFC3339),
		Fields:      fields,
		Footer: discordEmbedFooter{
			Text: "Tickguard",
		},
	}
}

// strategyColor returns the Discord embed color for a strategy.
func strategyColor(s detection.Strategy) int {
	switch s {
	case detection.StrategyBan:
		return 0xFF0000 // Red
	case detection.StrategyKick:
		return 0xFFA500 // Orange
	case detection.StrategyMitigate:
		return 0x3498DB // Blue
	default:
		return 0x95A5A6 // Gray
	}
}

// Discord webhook structures
type discordWebhookPayload struct {
	Username string         `json:"username,omitempty"`
	Content  string         `json:"content,omitempty"`
	Embeds   []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      discordEmbedFooter  `json:"footer,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}
