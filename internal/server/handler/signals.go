package handler

import (
	"log/slog"
	"net/http"

	"github.com/fedlens/fedlens/internal/domain"
)

// SignalHandler serves blended signals and their persisted history.
type SignalHandler struct {
	provider ResultProvider
	store    domain.SignalStore
	logger   *slog.Logger
}

// NewSignalHandler creates a SignalHandler. store may be nil; the history
// endpoint then returns 404.
func NewSignalHandler(provider ResultProvider, store domain.SignalStore, logger *slog.Logger) *SignalHandler {
	return &SignalHandler{
		provider: provider,
		store:    store,
		logger:   logHandler(logger, "signals"),
	}
}

// GetSignals returns the blended and macro signals from the latest run.
// GET /api/signals
func (h *SignalHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	result, asOf, ok := h.provider.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no aggregation run completed yet")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"as_of":   asOf,
		"signals": result.Signals,
		"macro":   result.Macro,
	})
}

// GetHistory returns persisted computed signals filtered by type and window.
// GET /api/signals/history?types=easing_probability&from=...&to=...&limit=...
func (h *SignalHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "signal storage not configured")
		return
	}

	window := parseWindow(r)
	signals, err := h.store.Find(r.Context(), domain.SignalFilter{
		Types: parseSignalTypes(r),
		From:  window.Start,
		To:    window.End,
		Limit: parseLimit(r),
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "signal history query failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "signal history query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(signals),
		"signals": signals,
	})
}
