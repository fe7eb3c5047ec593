// Copyright 2026 The Opendesk Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Rejection codes carried in error response bodies so clients can branch
// on the reason without string-matching messages.
const (
	CodeNoToken            = "NO_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
)

type errorBody struct {
	Status   string `json:"status"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
	Required string `json:"required,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response body", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorBody{Status: "error", Code: code, Message: message})
}

// respondForbidden echoes the permission the caller was missing so the
// client can surface an actionable message.
func respondForbidden(w http.ResponseWriter, required string) {
	respondJSON(w, http.StatusForbidden, errorBody{
		Status:   "error",
		Code:     CodeForbidden,
		Message:  "insufficient permissions",
		Required: required,
	})
}

// respondRateLimited writes the fixed 429 body shared by the router-level
// and per-endpoint limiters.
func respondRateLimited(w http.ResponseWriter) {
	respondJSON(w, http.StatusTooManyRequests, errorBody{
		Status:  "error",
		Message: "too many requests, please try again later",
	})
}
