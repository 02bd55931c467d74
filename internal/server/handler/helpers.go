package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fedlens/fedlens/internal/domain"
)

// writeJSON marshals v as JSON and writes it with the given status code.
// If marshaling fails, it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseWindow extracts a time window from "from" and "to" query parameters
// (RFC 3339). Defaults: the last 30 days.
func parseWindow(r *http.Request) domain.TimeWindow {
	now := time.Now().UTC()
	window := domain.TimeWindow{
		Start: now.AddDate(0, 0, -30),
		End:   now,
	}

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			window.Start = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			window.End = t
		}
	}
	return window
}

// parseLimit extracts a "limit" query parameter. Defaults to 100, capped at
// 1000.
func parseLimit(r *http.Request) int {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 1000 {
		limit = 1000
	}
	return limit
}

// parseSignalTypes extracts a comma-separated "types" query parameter.
func parseSignalTypes(r *http.Request) []domain.SignalType {
	v := r.URL.Query().Get("types")
	if v == "" {
		return nil
	}
	var types []domain.SignalType
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			types = append(types, domain.SignalType(part))
		}
	}
	return types
}

// logHandler attaches slog fields for handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
