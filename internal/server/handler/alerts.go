package handler

import (
	"log/slog"
	"net/http"

	"github.com/fedlens/fedlens/internal/domain"
)

// AlertHandler serves classified alerts from the latest aggregation run.
type AlertHandler struct {
	provider ResultProvider
	logger   *slog.Logger
}

// NewAlertHandler creates an AlertHandler.
func NewAlertHandler(provider ResultProvider, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{provider: provider, logger: logHandler(logger, "alerts")}
}

// ListAlerts returns the alerts from the latest run, optionally filtered by
// kind, plus the per-kind summary.
// GET /api/alerts?kind=opportunity
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	result, asOf, ok := h.provider.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no aggregation run completed yet")
		return
	}

	kind := domain.AlertKind(r.URL.Query().Get("kind"))
	alerts := result.Alerts
	if kind != "" {
		filtered := make([]domain.Alert, 0, len(alerts))
		for _, a := range alerts {
			if a.Kind == kind {
				filtered = append(filtered, a)
			}
		}
		alerts = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"as_of":   asOf,
		"count":   len(alerts),
		"alerts":  alerts,
		"summary": result.Summary,
	})
}
