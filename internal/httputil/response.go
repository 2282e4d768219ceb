// Package httputil holds JSON response and query-parameter helpers shared by
// the HTTP handlers.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Machine-readable error kinds returned in failure bodies.
const (
	KindUnauthorized     = "unauthorized"
	KindValidation       = "validation"
	KindPayloadTooLarge  = "payload_too_large"
	KindRateLimited      = "rate_limited"
	KindServerBusy       = "server_busy"
	KindConnectivity     = "connectivity"
	KindMethodNotAllowed = "method_not_allowed"
	KindInternal         = "internal"
)

// WriteJSON writes a JSON response with the given status code and payload.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes a structured error body with a machine-readable kind and
// a human-readable detail. Internal identifiers never go in detail; log them
// instead.
func WriteError(w http.ResponseWriter, status int, kind, detail string) {
	WriteJSON(w, status, map[string]any{
		"error": map[string]string{
			"kind":   kind,
			"detail": detail,
		},
	})
}
