// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tickguard/internal/logging"
	"github.com/tomtom215/tickguard/internal/validation"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Status   string               `json:"status"`
	Data     any                  `json:"data"`
	Metadata Metadata             `json:"metadata"`
	Error    *validation.APIError `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Count     *int      `json:"count,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, resp *APIResponse) {
	if resp.Metadata.Timestamp.IsZero() {
		resp.Metadata.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to encode API response")
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == "success" {
		sum := sha256.Sum256(body)
		w.Header().Set("ETag", `W/"`+hex.EncodeToString(sum[:8])+`"`)
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Debug().Err(err).Msg("Failed to write API response")
	}
}

func respondData(w http.ResponseWriter, data any, count *int) {
	respondJSON(w, http.StatusOK, &APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: Metadata{Count: count},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Err(err).Str("code", code).Msg(message)
	}
	respondJSON(w, status, &APIResponse{
		Status: "error",
		Error:  &validation.APIError{Code: code, Message: message},
	})
}

// validateRequest runs struct validation and writes a 400 on failure.
func validateRequest(w http.ResponseWriter, req any) bool {
	if verr := validation.ValidateStruct(req); verr != nil {
		respondJSON(w, http.StatusBadRequest, &APIResponse{
			Status: "error",
			Error:  verr.ToAPIError(),
		})
		return false
	}
	return true
}
