package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Helper functions for common HTTP responses

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// tenantFrom resolves the caller's tenant from the X-Tenant-ID header,
// falling back to the given default.
func tenantFrom(r *http.Request, fallback string) string {
	if t := r.Header.Get("X-Tenant-ID"); t != "" {
		return t
	}
	return fallback
}

// actorFrom resolves the caller's actor identity, empty when absent.
func actorFrom(r *http.Request) string {
	return r.Header.Get("X-Actor-ID")
}

// parseScope parses an entity-scope filter query value. Returns 0 for empty
// or invalid values.
func parseScope(s string) int64 {
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
		return v
	}
	return 0
}

// parseSince parses a long-poll watermark. Supports RFC3339 and raw unix
// milliseconds; returns the zero time for empty or invalid values.
func parseSince(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}
	return time.Time{}
}
