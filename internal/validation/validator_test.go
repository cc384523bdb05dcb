// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package validation

import (
	"strings"
	"testing"
)

type queryRequest struct {
	ConnectionID string `query:"connection_id" validate:"omitempty,uuid"`
	Kind         string `query:"kind" validate:"omitempty,detection_kind"`
	MinStrategy  string `query:"min_strategy" validate:"omitempty,strategy"`
	Since        string `query:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Username     string `query:"username" validate:"omitempty,max=16"`
	Limit        int    `query:"limit" validate:"min=1,max=1000"`
	Untagged     string `validate:"omitempty,oneof=a b"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() returned different instances")
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name string
		req  queryRequest
	}{
		{"minimal", queryRequest{Limit: 1}},
		{"all fields", queryRequest{
			ConnectionID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			Kind:         "sign_bounds",
			MinStrategy:  "KICK",
			Since:        "2026-03-01T12:00:00Z",
			Username:     "steve",
			Limit:        1000,
			Untagged:     "b",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(&tt.req); err != nil {
				t.Errorf("ValidateStruct() error = %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		req       queryRequest
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{"bad uuid", queryRequest{ConnectionID: "nope", Limit: 1}, "connection_id", "uuid", "connection_id must be a valid UUID"},
		{"bad kind", queryRequest{Kind: "speed", Limit: 1}, "kind", "detection_kind", "kind must be a known detector kind"},
		{"bad strategy", queryRequest{MinStrategy: "nuke", Limit: 1}, "min_strategy", "strategy", "min_strategy must be one of: mitigate, kick, ban"},
		{"bad since", queryRequest{Since: "yesterday", Limit: 1}, "since", "datetime", "since must be a valid date/time in RFC3339 format"},
		{"long username", queryRequest{Username: strings.Repeat("x", 17), Limit: 1}, "username", "max", "username must be at most 16 characters"},
		{"limit zero", queryRequest{Limit: 0}, "limit", "min", "limit must be at least 1"},
		{"limit too high", queryRequest{Limit: 1001}, "limit", "max", "limit must be at most 1000"},
		{"untagged field keeps name", queryRequest{Limit: 1, Untagged: "c"}, "Untagged", "oneof", "Untagged must be one of: a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if err == nil {
				t.Fatal("ValidateStruct() error = nil, want error")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("len(Errors()) = %d, want 1: %v", len(errs), err)
			}
			if got := errs[0].Field(); got != tt.wantField {
				t.Errorf("Field() = %q, want %q", got, tt.wantField)
			}
			if got := errs[0].Tag(); got != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", got, tt.wantTag)
			}
			if got := errs[0].Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	single := ValidateStruct(&queryRequest{Limit: 0}).ToAPIError()
	if single.Code != CodeValidation {
		t.Errorf("Code = %q, want %q", single.Code, CodeValidation)
	}
	if single.Details["field"] != "limit" {
		t.Errorf("Details[field] = %v, want limit", single.Details["field"])
	}

	multi := ValidateStruct(&queryRequest{Kind: "speed", Limit: 0}).ToAPIError()
	fields, ok := multi.Details["fields"].([]map[string]any)
	if !ok || len(fields) != 2 {
		t.Fatalf("Details[fields] = %#v, want 2 entries", multi.Details["fields"])
	}
	if !strings.Contains(multi.Message, "kind: ") || !strings.Contains(multi.Message, "limit: ") {
		t.Errorf("Message = %q, want both fields listed", multi.Message)
	}

	empty := (&RequestValidationError{}).ToAPIError()
	if empty.Message != "Validation failed" {
		t.Errorf("empty Message = %q, want %q", empty.Message, "Validation failed")
	}
}
