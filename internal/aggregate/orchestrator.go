// Package aggregate fans out to venue collaborators, reconciles their records
// through the matcher and classifier, and blends per-venue indicators into
// cross-venue signals.
package aggregate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fedlens/fedlens/internal/divergence"
	"github.com/fedlens/fedlens/internal/domain"
	"github.com/fedlens/fedlens/internal/instrumentation"
	"github.com/fedlens/fedlens/internal/match"
)

// Config holds aggregation parameters plus the matcher and classifier configs.
type Config struct {
	// MinLiquidityScore filters fetched records before matching. Records with
	// no liquidity score (0) are filtered out.
	MinLiquidityScore float64
	Matcher           match.Config
	Classifier        divergence.Config
}

// DefaultConfig returns the standard aggregation parameters.
func DefaultConfig() Config {
	return Config{
		MinLiquidityScore: 0.3,
		Matcher:           match.DefaultConfig(),
		Classifier:        divergence.DefaultConfig(),
	}
}

// Result is everything one aggregation call produces. It is a plain value
// object; the projection methods are read-only filters and never refetch.
type Result struct {
	Records      []domain.MarketRecord
	MatchedPairs []domain.MatchedPair
	Alerts       []domain.Alert
	Summary      domain.AlertSummary
	Signals      domain.AggregatedSignals
	Macro        domain.MacroSignals
}

// Orchestrator coordinates venue fan-out, liquidity filtering, matching,
// classification, and signal blending. It holds no cross-call mutable state.
type Orchestrator struct {
	clients []domain.VenueClient
	cache   domain.RecordCache // optional
	metrics *instrumentation.Metrics
	cfg     Config
	logger  *slog.Logger
}

// NewOrchestrator creates an orchestrator over the given venue clients.
// cache and metrics may be nil.
func NewOrchestrator(
	clients []domain.VenueClient,
	cache domain.RecordCache,
	metrics *instrumentation.Metrics,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		clients: clients,
		cache:   cache,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "aggregate")),
	}
}

// GetAllMarketData fetches the given market types from every configured
// venue, reconciles the records, and returns the full aggregated result.
// A failing venue is logged and skipped; the call proceeds with whatever
// venues succeeded. Isolate-and-continue here is deliberate: wrapping the
// whole fan-out in one failure path would couple every venue to the flakiest
// one.
func (o *Orchestrator) GetAllMarketData(ctx context.Context, marketTypes []domain.MarketType) (*Result, error) {
	start := time.Now()

	type venueBatch struct {
		venue   domain.Venue
		records []domain.MarketRecord
		signals domain.VenueSignals
	}

	var mu sync.Mutex
	var batches []venueBatch

	g, gctx := errgroup.WithContext(ctx)
	for _, client := range o.clients {
		g.Go(func() error {
			records, err := client.FetchMarkets(gctx, marketTypes)
			if err != nil {
				o.metrics.RecordVenueFetch(string(client.Venue()), "error")
				o.logger.WarnContext(gctx, "venue fetch failed, skipping venue",
					slog.String("venue", string(client.Venue())),
					slog.String("error", err.Error()),
				)
				return nil
			}
			o.metrics.RecordVenueFetch(string(client.Venue()), "ok")
			o.metrics.RecordRecordsFetched(string(client.Venue()), len(records))

			kept := o.filterRecords(records)
			batch := venueBatch{
				venue:   client.Venue(),
				records: kept,
				signals: client.CalculateScores(kept),
			}
			mu.Lock()
			batches = append(batches, batch)
			mu.Unlock()
			return nil
		})
	}
	// Goroutines never return errors; Wait only observes ctx cancellation.
	_ = g.Wait()

	// Venue goroutine completion order is nondeterministic; restore the
	// configured client order so repeated calls produce identical output.
	ordered := make([]venueBatch, 0, len(batches))
	for _, client := range o.clients {
		for _, b := range batches {
			if b.venue == client.Venue() {
				ordered = append(ordered, b)
				break
			}
		}
	}

	result := &Result{}
	venueSignals := make(map[domain.Venue]domain.VenueSignals, len(ordered))
	byVenue := make(map[domain.Venue][]domain.MarketRecord, len(ordered))
	var venues []domain.Venue
	for _, b := range ordered {
		result.Records = append(result.Records, b.records...)
		venueSignals[b.venue] = b.signals
		byVenue[b.venue] = b.records
		venues = append(venues, b.venue)
		if o.cache != nil {
			if err := o.cache.SetRecords(ctx, b.venue, b.records); err != nil {
				o.logger.WarnContext(ctx, "record cache write failed",
					slog.String("venue", string(b.venue)),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	// Match every unordered venue pair.
	for i := 0; i < len(venues); i++ {
		for j := i + 1; j < len(venues); j++ {
			pairs := match.FindMatches(byVenue[venues[i]], byVenue[venues[j]], o.cfg.Matcher)
			result.MatchedPairs = append(result.MatchedPairs, pairs...)
		}
	}
	o.metrics.RecordMatches(len(result.MatchedPairs))

	result.Alerts = divergence.Analyze(result.MatchedPairs, o.cfg.Classifier)
	result.Summary = divergence.Summarize(result.Alerts)
	for _, a := range result.Alerts {
		o.metrics.RecordAlert(string(a.Kind))
	}

	result.Signals = blendSignals(venueSignals, venues, len(result.Records))
	result.Macro = macroSignals(result.Signals, result.MatchedPairs)

	o.metrics.RecordAggregationDuration(float64(time.Since(start).Milliseconds()))
	o.logger.InfoContext(ctx, "aggregation complete",
		slog.Int("venues", len(venues)),
		slog.Int("records", len(result.Records)),
		slog.Int("pairs", len(result.MatchedPairs)),
		slog.Int("alerts", len(result.Alerts)),
	)
	return result, nil
}

// filterRecords drops invalid records and records below the liquidity floor.
func (o *Orchestrator) filterRecords(records []domain.MarketRecord) []domain.MarketRecord {
	kept := make([]domain.MarketRecord, 0, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			o.logger.Debug("dropping invalid record", slog.String("error", err.Error()))
			continue
		}
		if r.LiquidityScore < o.cfg.MinLiquidityScore {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// RatePolicyMarkets is a read-only projection of the rate-policy subset.
func (r *Result) RatePolicyMarkets() []domain.MarketRecord {
	var out []domain.MarketRecord
	for _, rec := range r.Records {
		if rec.MarketType == domain.MarketTypeRatePolicy {
			out = append(out, rec)
		}
	}
	return out
}

// defaultIndicatorKeywords is the stock economic-indicator vocabulary used by
// EconomicIndicatorMarkets.
var defaultIndicatorKeywords = []string{
	"cpi", "inflation", "gdp", "unemployment", "payroll", "nonfarm",
	"pce", "fomc", "fed funds", "jobless",
}

// EconomicIndicatorMarkets projects markets whose question mentions a stock
// economic-indicator keyword.
func (r *Result) EconomicIndicatorMarkets() []domain.MarketRecord {
	return r.FilterByKeywords(defaultIndicatorKeywords)
}

// FilterByKeywords projects markets whose question mentions any of the given
// keywords (case-insensitive). It never refetches.
func (r *Result) FilterByKeywords(keywords []string) []domain.MarketRecord {
	var out []domain.MarketRecord
	for _, rec := range r.Records {
		q := strings.ToLower(rec.Question)
		for _, kw := range keywords {
			if strings.Contains(q, strings.ToLower(kw)) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}
