// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Check is the status of one dependency.
type Check struct {
	Status  string `json:"status"` // "pass" or "fail"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health returns a handler that pings every dependency in checks.
func Health(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := HealthResponse{
			Status:    "healthy",
			Checks:    make(map[string]Check, len(checks)),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK
		for name, p := range checks {
			start := time.Now()
			if err := p.Ping(ctx); err != nil {
				resp.Checks[name] = Check{Status: "fail", Message: err.Error()}
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = Check{Status: "pass", Latency: time.Since(start).String()}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
