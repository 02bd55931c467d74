package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fedlens/fedlens/internal/backtest"
	"github.com/fedlens/fedlens/internal/domain"
)

// BacktestHandler exposes the historical analysis operations.
type BacktestHandler struct {
	adapter *backtest.Adapter
	logger  *slog.Logger
}

// NewBacktestHandler creates a BacktestHandler.
func NewBacktestHandler(adapter *backtest.Adapter, logger *slog.Logger) *BacktestHandler {
	return &BacktestHandler{adapter: adapter, logger: logHandler(logger, "backtest")}
}

// GetAccuracy returns the accuracy report for one signal type.
// GET /api/backtest/accuracy?type=easing_probability&threshold=0.5&from=...&to=...
func (h *BacktestHandler) GetAccuracy(w http.ResponseWriter, r *http.Request) {
	signalType := domain.SignalType(r.URL.Query().Get("type"))
	if signalType == "" {
		writeError(w, http.StatusBadRequest, "missing signal type")
		return
	}

	threshold := 0.5
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f >= 1 {
			writeError(w, http.StatusBadRequest, "threshold must be in (0, 1)")
			return
		}
		threshold = f
	}

	report, err := h.adapter.ComputeSignalAccuracy(r.Context(), signalType, threshold, parseWindow(r))
	if err != nil {
		h.writeBacktestError(w, r, "accuracy", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetCorrelation returns lead/lag correlations between a signal and an
// external instrument.
// GET /api/backtest/correlation?type=easing_probability&instrument=ZQ&max_lag_hours=24
func (h *BacktestHandler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	signalType := domain.SignalType(r.URL.Query().Get("type"))
	instrument := r.URL.Query().Get("instrument")
	if signalType == "" || instrument == "" {
		writeError(w, http.StatusBadRequest, "missing signal type or instrument")
		return
	}

	maxLag := 24
	if v := r.URL.Query().Get("max_lag_hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxLag = n
		}
	}

	correlations, err := h.adapter.ComputeSignalCorrelation(r.Context(), signalType, instrument, parseWindow(r), maxLag)
	if err != nil {
		h.writeBacktestError(w, r, "correlation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"signal_type":  signalType,
		"instrument":   instrument,
		"correlations": correlations,
	})
}

// GetWeights returns accuracy-derived blending weights for the requested
// signal types.
// GET /api/backtest/weights?types=easing_probability,recession_probability
func (h *BacktestHandler) GetWeights(w http.ResponseWriter, r *http.Request) {
	types := parseSignalTypes(r)
	if len(types) == 0 {
		types = []domain.SignalType{
			domain.SignalEasingProbability,
			domain.SignalTighteningProbability,
			domain.SignalRecessionProbability,
		}
	}

	weights, err := h.adapter.ComputeOptimalWeights(r.Context(), types, parseWindow(r))
	if err != nil {
		h.writeBacktestError(w, r, "weights", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weights": weights})
}

// GetRegimes returns per-volatility-regime accuracy for one signal type.
// GET /api/backtest/regimes?type=easing_probability
func (h *BacktestHandler) GetRegimes(w http.ResponseWriter, r *http.Request) {
	signalType := domain.SignalType(r.URL.Query().Get("type"))
	if signalType == "" {
		writeError(w, http.StatusBadRequest, "missing signal type")
		return
	}

	stats, err := h.adapter.AnalyzeByRegime(r.Context(), signalType, parseWindow(r))
	if err != nil {
		h.writeBacktestError(w, r, "regimes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"signal_type": signalType,
		"regimes":     stats,
	})
}

// GetHistoricalMarkets returns reconstructed probability series in a window.
// GET /api/backtest/markets?from=...&to=...&type=rate_policy
func (h *BacktestHandler) GetHistoricalMarkets(w http.ResponseWriter, r *http.Request) {
	var types []domain.MarketType
	if v := r.URL.Query().Get("type"); v != "" {
		types = append(types, domain.MarketType(v))
	}

	series, err := h.adapter.GetHistoricalMarkets(r.Context(), parseWindow(r), types)
	if err != nil {
		h.writeBacktestError(w, r, "historical markets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(series),
		"markets": series,
	})
}

// GetMarketAtTime returns the last snapshot of a ticker at or before a
// point in time.
// GET /api/backtest/markets/{ticker}?at=2025-01-15T14:00:00Z
func (h *BacktestHandler) GetMarketAtTime(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("ticker")

	asOf := time.Now().UTC()
	if v := r.URL.Query().Get("at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at timestamp")
			return
		}
		asOf = t
	}

	snap, stillOpen, err := h.adapter.GetMarketAtTime(r.Context(), ticker, asOf)
	if err != nil {
		h.writeBacktestError(w, r, "market at time", err)
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "no snapshot at or before the requested time")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot":   snap,
		"still_open": stillOpen,
	})
}

func (h *BacktestHandler) writeBacktestError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrStorageNotConfigured):
		writeError(w, http.StatusNotFound, "historical storage not configured")
	case errors.Is(err, domain.ErrInsufficientData):
		writeError(w, http.StatusUnprocessableEntity, "insufficient data for analysis")
	default:
		h.logger.ErrorContext(r.Context(), "backtest operation failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}
