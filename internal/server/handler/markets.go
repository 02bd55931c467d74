package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fedlens/fedlens/internal/domain"
)

// MarketHandler serves unified market records and matched pairs.
type MarketHandler struct {
	cache    domain.RecordCache
	provider ResultProvider
	logger   *slog.Logger
}

// NewMarketHandler creates a MarketHandler. cache may be nil; the
// venue-scoped listing then returns 404.
func NewMarketHandler(cache domain.RecordCache, provider ResultProvider, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		cache:    cache,
		provider: provider,
		logger:   logHandler(logger, "markets"),
	}
}

// ListMarkets returns the records from the latest aggregation run, optionally
// filtered by venue or market type.
// GET /api/markets?venue=polymarket&type=rate_policy
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	result, asOf, ok := h.provider.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no aggregation run completed yet")
		return
	}

	venue := domain.Venue(r.URL.Query().Get("venue"))
	marketType := domain.MarketType(r.URL.Query().Get("type"))
	keywords := r.URL.Query().Get("keywords")

	records := result.Records
	if keywords != "" {
		records = result.FilterByKeywords(strings.Split(keywords, ","))
	}

	var out []domain.MarketRecord
	for _, rec := range records {
		if venue != "" && rec.Venue != venue {
			continue
		}
		if marketType != "" && rec.MarketType != marketType {
			continue
		}
		out = append(out, rec)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"as_of":   asOf,
		"count":   len(out),
		"markets": out,
	})
}

// ListCached returns the raw cached record batch for one venue, bypassing the
// aggregation pipeline.
// GET /api/markets/cached/{venue}
func (h *MarketHandler) ListCached(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusNotFound, "record cache not configured")
		return
	}

	venue := domain.Venue(r.PathValue("venue"))
	records, err := h.cache.GetRecords(r.Context(), venue)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no cached records for venue")
			return
		}
		h.logger.ErrorContext(r.Context(), "cache read failed",
			slog.String("venue", string(venue)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "cache read failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"venue":   venue,
		"count":   len(records),
		"markets": records,
	})
}

// ListMatches returns the cross-venue matched pairs from the latest run.
// GET /api/markets/matches
func (h *MarketHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	result, asOf, ok := h.provider.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no aggregation run completed yet")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"as_of":   asOf,
		"count":   len(result.MatchedPairs),
		"matches": result.MatchedPairs,
	})
}
