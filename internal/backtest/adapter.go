// Package backtest scores how predictive persisted signals were against
// realized outcomes. It is a parallel consumer of the storage collaborator
// and does not depend on the live aggregation path.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fedlens/fedlens/internal/domain"
)

// lookbackWindow bounds how far back GetMarketAtTime searches for the latest
// snapshot at or before the requested time.
const lookbackWindow = 24 * time.Hour

// Adapter computes backtesting statistics over persisted snapshots, signals,
// and resolutions. All public methods fail fast with
// domain.ErrStorageNotConfigured when the required store is missing.
//
// The only cross-call state is the resolution cache: resolutions are
// immutable once known, so an append-only read-through map needs no
// invalidation or TTL.
type Adapter struct {
	snapshots   domain.SnapshotStore
	signals     domain.SignalStore
	resolutions domain.ResolutionStore
	prices      domain.InstrumentPriceStore
	logger      *slog.Logger

	mu       sync.RWMutex
	resCache map[string]domain.Resolution
}

// New creates an Adapter over the given storage collaborators. Any of them
// may be nil; methods needing a missing one return
// domain.ErrStorageNotConfigured.
func New(
	snapshots domain.SnapshotStore,
	signals domain.SignalStore,
	resolutions domain.ResolutionStore,
	prices domain.InstrumentPriceStore,
	logger *slog.Logger,
) *Adapter {
	return &Adapter{
		snapshots:   snapshots,
		signals:     signals,
		resolutions: resolutions,
		prices:      prices,
		logger:      logger.With(slog.String("component", "backtest")),
		resCache:    make(map[string]domain.Resolution),
	}
}

// GetHistoricalMarkets groups persisted snapshots in the window by ticker,
// sorts each series ascending by time, and attaches the resolution when
// known.
func (a *Adapter) GetHistoricalMarkets(
	ctx context.Context,
	window domain.TimeWindow,
	marketTypes []domain.MarketType,
) ([]domain.HistoricalSeries, error) {
	if a.snapshots == nil {
		return nil, fmt.Errorf("backtest: historical markets: %w", domain.ErrStorageNotConfigured)
	}

	snaps, err := a.snapshots.Find(ctx, domain.SnapshotFilter{
		MarketTypes: marketTypes,
		From:        window.Start,
		To:          window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("backtest: find snapshots: %w", err)
	}

	byTicker := make(map[string][]domain.MarketSnapshot)
	var order []string
	for _, s := range snaps {
		if _, seen := byTicker[s.Ticker]; !seen {
			order = append(order, s.Ticker)
		}
		byTicker[s.Ticker] = append(byTicker[s.Ticker], s)
	}
	sort.Strings(order)

	series := make([]domain.HistoricalSeries, 0, len(order))
	for _, ticker := range order {
		group := byTicker[ticker]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})

		points := make([]domain.ProbabilityPoint, 0, len(group))
		for _, s := range group {
			outcomes := make(map[string]float64, len(s.Outcomes))
			for _, o := range s.Outcomes {
				outcomes[o.Label] = o.Probability
			}
			points = append(points, domain.ProbabilityPoint{
				Timestamp: s.Timestamp,
				Outcomes:  outcomes,
			})
		}

		latest := group[len(group)-1]
		hs := domain.HistoricalSeries{
			Ticker:     ticker,
			Venue:      latest.Venue,
			MarketType: latest.MarketType,
			Question:   latest.Question,
			Points:     points,
		}
		if res, err := a.resolution(ctx, ticker); err == nil {
			hs.Resolution = res
		}
		series = append(series, hs)
	}
	return series, nil
}

// GetMarketAtTime returns the latest snapshot at or before asOf within a
// one-day lookback, or nil when none exists in that window. The second
// return value reports whether the market was still open at asOf.
func (a *Adapter) GetMarketAtTime(ctx context.Context, ticker string, asOf time.Time) (*domain.MarketSnapshot, bool, error) {
	if a.snapshots == nil {
		return nil, false, fmt.Errorf("backtest: market at time: %w", domain.ErrStorageNotConfigured)
	}

	snaps, err := a.snapshots.GetByTicker(ctx, ticker, asOf.Add(-lookbackWindow), asOf)
	if err != nil {
		return nil, false, fmt.Errorf("backtest: snapshots for %s: %w", ticker, err)
	}

	var latest *domain.MarketSnapshot
	for i := range snaps {
		s := snaps[i]
		if s.Timestamp.After(asOf) {
			continue
		}
		if latest == nil || s.Timestamp.After(latest.Timestamp) {
			latest = &s
		}
	}

	stillOpen := true
	if res, err := a.resolution(ctx, ticker); err == nil && res != nil {
		stillOpen = res.ResolvedAt.After(asOf)
	}

	if latest == nil {
		return nil, stillOpen, nil
	}
	return latest, stillOpen, nil
}

// resolution is a read-through cache over the resolution store. Resolutions
// never change once set, so entries are cached for the process lifetime.
func (a *Adapter) resolution(ctx context.Context, ticker string) (*domain.Resolution, error) {
	a.mu.RLock()
	cached, ok := a.resCache[ticker]
	a.mu.RUnlock()
	if ok {
		return &cached, nil
	}

	if a.resolutions == nil {
		return nil, domain.ErrStorageNotConfigured
	}
	res, err := a.resolutions.Get(ctx, ticker)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.logger.WarnContext(ctx, "resolution lookup failed",
				slog.String("ticker", ticker),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	a.mu.Lock()
	a.resCache[ticker] = res
	a.mu.Unlock()
	return &res, nil
}

// resolvedSignals fetches signals of the given type in the window and keeps
// only those carrying a ground-truth outcome. Signals without a resolution
// are excluded from the sample, never approximated.
func (a *Adapter) resolvedSignals(
	ctx context.Context,
	signalType domain.SignalType,
	window domain.TimeWindow,
) ([]domain.ComputedSignal, error) {
	if a.signals == nil {
		return nil, fmt.Errorf("backtest: signals: %w", domain.ErrStorageNotConfigured)
	}
	all, err := a.signals.Find(ctx, domain.SignalFilter{
		Types: []domain.SignalType{signalType},
		From:  window.Start,
		To:    window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("backtest: find signals: %w", err)
	}

	resolved := make([]domain.ComputedSignal, 0, len(all))
	for _, s := range all {
		if s.Outcome != nil {
			resolved = append(resolved, s)
		}
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].Timestamp.Before(resolved[j].Timestamp)
	})
	return resolved, nil
}
