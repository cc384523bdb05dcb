// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

// Package validation provides struct validation using go-playground/validator v10.
//
// It holds a thread-safe singleton validator with the detection-specific
// tags registered:
//
//	strategy        mitigate, kick or ban (case-insensitive)
//	detection_kind  a registered detector kind such as rate_limit
//
// Field names in errors come from the `query` struct tag when present, so a
// failed check reports the query parameter the client actually sent:
//
//	type ViolationsRequest struct {
//	    Kind  string `query:"kind" validate:"omitempty,detection_kind"`
//	    Limit int    `query:"limit" validate:"min=1,max=1000"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    // apiErr.Code == "VALIDATION_ERROR"
//	}
package validation
