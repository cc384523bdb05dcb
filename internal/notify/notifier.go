// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/tickguard/internal/detection"
)

// Notifier delivers alerts to one external service.
type Notifier interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, alert *Alert) error
}

// Alert is a violation prepared for humans.
type Alert struct {
	Violation detection.ViolationRecord `json:"violation"`
	Title     string                    `json:"title"`
	Message   string                    `json:"message"`
}

// NewAlert builds the alert for rec.
func NewAlert(rec detection.ViolationRecord) *Alert {
	return &Alert{
		Violation: rec,
		Title:     kindTitle(rec.Kind) + " violation",
		Message:   fmt.Sprintf("%s %s: %s", rec.Username, rec.Strategy.Verb(), rec.Description),
	}
}

// kindTitle turns rate_limit into Rate limit.
func kindTitle(k detection.Kind) string {
	s := strings.ReplaceAll(string(k), "_", " ")
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
