// Package service hosts the long-running application services built on top
// of the aggregation and backtest packages: the periodic reconciliation loop,
// result publication, and signal persistence.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fedlens/fedlens/internal/aggregate"
	s3blob "github.com/fedlens/fedlens/internal/blob/s3"
	"github.com/fedlens/fedlens/internal/domain"
	"github.com/fedlens/fedlens/internal/notify"
	"github.com/fedlens/fedlens/internal/platform/venuescore"
)

// outcomeBackfillLookback bounds how far back the resolution sweep searches
// for unscored signals.
const outcomeBackfillLookback = 90 * 24 * time.Hour

// AggregationService runs reconciliation cycles, holds the most recent
// result for read-side consumers, and persists its outputs. Every
// collaborator except the orchestrator is optional.
type AggregationService struct {
	orch        *aggregate.Orchestrator
	marketTypes []domain.MarketType

	snapshots   domain.SnapshotStore
	signals     domain.SignalStore
	resolutions domain.ResolutionStore
	alertBus    domain.AlertBus
	notifier    *notify.Notifier
	archiver    *s3blob.Archiver

	logger *slog.Logger

	mu       sync.RWMutex
	latest   *aggregate.Result
	latestAt time.Time
}

// NewAggregationService creates the service. snapshots, signals,
// resolutions, alertBus, notifier and archiver may each be nil; the
// corresponding step is skipped.
func NewAggregationService(
	orch *aggregate.Orchestrator,
	marketTypes []domain.MarketType,
	snapshots domain.SnapshotStore,
	signals domain.SignalStore,
	resolutions domain.ResolutionStore,
	alertBus domain.AlertBus,
	notifier *notify.Notifier,
	archiver *s3blob.Archiver,
	logger *slog.Logger,
) *AggregationService {
	return &AggregationService{
		orch:        orch,
		marketTypes: marketTypes,
		snapshots:   snapshots,
		signals:     signals,
		resolutions: resolutions,
		alertBus:    alertBus,
		notifier:    notifier,
		archiver:    archiver,
		logger:      logger.With(slog.String("component", "aggregation_service")),
	}
}

// Latest returns the most recent aggregation result, or ok=false before the
// first completed run.
func (s *AggregationService) Latest() (*aggregate.Result, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latestAt, s.latest != nil
}

// RunOnce performs one full reconciliation cycle: fetch, match, classify,
// blend, then persist and publish. Persistence and publication failures are
// logged but do not fail the run; the computed result is still returned and
// retained for readers.
func (s *AggregationService) RunOnce(ctx context.Context) (*aggregate.Result, error) {
	result, err := s.orch.GetAllMarketData(ctx, s.marketTypes)
	if err != nil {
		return nil, fmt.Errorf("service: aggregation run: %w", err)
	}
	now := time.Now().UTC()

	s.mu.Lock()
	s.latest = result
	s.latestAt = now
	s.mu.Unlock()

	if s.snapshots != nil {
		if err := s.persistSnapshots(ctx, result, now); err != nil {
			s.logger.ErrorContext(ctx, "snapshot persistence failed",
				slog.String("error", err.Error()),
			)
		}
	}
	if s.signals != nil {
		if err := s.persistSignals(ctx, result, now); err != nil {
			s.logger.ErrorContext(ctx, "signal persistence failed",
				slog.String("error", err.Error()),
			)
		}
		if s.resolutions != nil {
			if err := s.backfillOutcomes(ctx, now); err != nil {
				s.logger.ErrorContext(ctx, "outcome backfill failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}

	s.publishAlerts(ctx, result)

	if s.archiver != nil {
		if err := s.archiver.ArchiveReport(ctx, *result, now); err != nil {
			s.logger.ErrorContext(ctx, "report archival failed",
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "aggregation run complete",
		slog.Int("records", len(result.Records)),
		slog.Int("matches", len(result.MatchedPairs)),
		slog.Int("alerts", len(result.Alerts)),
	)
	return result, nil
}

// Watch runs RunOnce on the given interval until the context is cancelled.
// A failing cycle is logged and the loop continues.
func (s *AggregationService) Watch(ctx context.Context, interval time.Duration) error {
	s.logger.InfoContext(ctx, "watch loop starting",
		slog.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First run immediately rather than waiting one full interval.
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.ErrorContext(ctx, "aggregation cycle failed",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "aggregation cycle failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// persistSnapshots stores one point-in-time snapshot per fetched record.
func (s *AggregationService) persistSnapshots(ctx context.Context, result *aggregate.Result, now time.Time) error {
	snaps := make([]domain.MarketSnapshot, 0, len(result.Records))
	for _, rec := range result.Records {
		snaps = append(snaps, domain.MarketSnapshot{
			ID:             uuid.NewString(),
			Ticker:         rec.Ticker,
			Venue:          rec.Venue,
			MarketType:     rec.MarketType,
			Question:       rec.Question,
			Outcomes:       rec.Outcomes,
			Timestamp:      now,
			LiquidityScore: rec.LiquidityScore,
			Volume24h:      rec.Volume24h,
		})
	}
	return s.snapshots.InsertBatch(ctx, snaps)
}

// persistSignals stores the blended indicators plus one per-market signal for
// every record with a directional reading. Per-market rows carry the ticker
// so their outcomes can be backfilled once the market resolves; blended rows
// have no single underlying market and are never scored.
func (s *AggregationService) persistSignals(ctx context.Context, result *aggregate.Result, now time.Time) error {
	var signals []domain.ComputedSignal

	add := func(st domain.SignalType, v *float64) {
		if v == nil {
			return
		}
		signals = append(signals, domain.ComputedSignal{
			ID:        uuid.NewString(),
			Type:      st,
			Value:     *v,
			Timestamp: now,
		})
	}
	add(domain.SignalEasingProbability, result.Signals.EasingProbability)
	add(domain.SignalTighteningProbability, result.Signals.TighteningProbability)
	add(domain.SignalRecessionProbability, result.Signals.RecessionProbability)
	add(domain.SignalUncertaintyIndex, result.Signals.UncertaintyIndex)

	for _, rec := range result.Records {
		st, ok := venuescore.TypeFor(rec)
		if !ok {
			continue
		}
		yes, ok := rec.YesProbability()
		if !ok {
			continue
		}
		signals = append(signals, domain.ComputedSignal{
			ID:        uuid.NewString(),
			Type:      st,
			Value:     yes,
			Ticker:    rec.Ticker,
			Timestamp: now,
		})
	}

	return s.signals.InsertBatch(ctx, signals)
}

// backfillOutcomes scans recent per-market signals that have no ground truth
// yet and attaches one when the underlying market has since resolved. A
// market that has not resolved stays nil; the scorer excludes those samples
// rather than guessing.
func (s *AggregationService) backfillOutcomes(ctx context.Context, now time.Time) error {
	signals, err := s.signals.Find(ctx, domain.SignalFilter{
		From: now.Add(-outcomeBackfillLookback),
		To:   now,
	})
	if err != nil {
		return fmt.Errorf("service: backfill query: %w", err)
	}

	var updated []domain.ComputedSignal
	for _, sig := range signals {
		if sig.Outcome != nil || sig.Ticker == "" {
			continue
		}
		res, err := s.resolutions.Get(ctx, sig.Ticker)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return fmt.Errorf("service: backfill resolution %s: %w", sig.Ticker, err)
		}
		outcome := res.ActualOutcome == "yes"
		sig.Outcome = &outcome
		updated = append(updated, sig)
	}

	if len(updated) == 0 {
		return nil
	}
	if err := s.signals.InsertBatch(ctx, updated); err != nil {
		return fmt.Errorf("service: backfill update: %w", err)
	}
	s.logger.InfoContext(ctx, "signal outcomes backfilled",
		slog.Int("count", len(updated)),
	)
	return nil
}

// publishAlerts fans alerts out to the bus and the notifier. Both are best
// effort.
func (s *AggregationService) publishAlerts(ctx context.Context, result *aggregate.Result) {
	for _, alert := range result.Alerts {
		if s.alertBus != nil {
			if err := s.alertBus.Publish(ctx, alert); err != nil {
				s.logger.WarnContext(ctx, "alert publish failed",
					slog.String("kind", string(alert.Kind)),
					slog.String("error", err.Error()),
				)
			}
		}
		if s.notifier != nil {
			if err := s.notifier.NotifyAlert(ctx, alert); err != nil {
				s.logger.WarnContext(ctx, "alert notification failed",
					slog.String("kind", string(alert.Kind)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
