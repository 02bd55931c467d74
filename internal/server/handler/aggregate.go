package handler

import (
	"log/slog"
	"net/http"
)

// AggregateHandler triggers on-demand aggregation runs.
type AggregateHandler struct {
	runner Runner
	logger *slog.Logger
}

// NewAggregateHandler creates an AggregateHandler.
func NewAggregateHandler(runner Runner, logger *slog.Logger) *AggregateHandler {
	return &AggregateHandler{runner: runner, logger: logHandler(logger, "aggregate")}
}

// Trigger runs one aggregation cycle and returns its summary.
// POST /api/aggregate/trigger
func (h *AggregateHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.RunOnce(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "triggered run failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "aggregation run failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": len(result.Records),
		"matches": len(result.MatchedPairs),
		"alerts":  len(result.Alerts),
		"summary": result.Summary,
	})
}
