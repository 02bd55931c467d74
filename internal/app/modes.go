package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fedlens/fedlens/internal/aggregate"
	"github.com/fedlens/fedlens/internal/backtest"
	s3blob "github.com/fedlens/fedlens/internal/blob/s3"
	"github.com/fedlens/fedlens/internal/divergence"
	"github.com/fedlens/fedlens/internal/domain"
	"github.com/fedlens/fedlens/internal/instrumentation"
	"github.com/fedlens/fedlens/internal/match"
	"github.com/fedlens/fedlens/internal/platform/kalshi"
	"github.com/fedlens/fedlens/internal/platform/polymarket"
	"github.com/fedlens/fedlens/internal/server"
	"github.com/fedlens/fedlens/internal/server/handler"
	"github.com/fedlens/fedlens/internal/service"
)

// backtestReportWindow is how far back the one-shot backtest mode scores.
const backtestReportWindow = 90 * 24 * time.Hour

// buildAggregationService wires the venue clients, orchestrator and
// aggregation service from config and the shared dependencies.
func (a *App) buildAggregationService(deps *Dependencies) *service.AggregationService {
	clients := []domain.VenueClient{
		polymarket.NewClient(a.cfg.Polymarket.GammaHost),
		kalshi.NewClient(a.cfg.Kalshi.BaseURL),
	}

	orch := aggregate.NewOrchestrator(
		clients,
		deps.RecordCache,
		instrumentation.NewMetrics(),
		aggregate.Config{
			MinLiquidityScore: a.cfg.Aggregation.MinLiquidityScore,
			Matcher: match.Config{
				QuestionWeight: a.cfg.Matcher.QuestionWeight,
				OutcomeWeight:  a.cfg.Matcher.OutcomeWeight,
				TemporalWeight: a.cfg.Matcher.TemporalWeight,
				MinSimilarity:  a.cfg.Matcher.MinSimilarity,
			},
			Classifier: divergence.Config{
				MinLiquidity:  a.cfg.Classifier.MinLiquidityScore,
				MinDivergence: a.cfg.Classifier.DivergenceFloor,
				MaxDivergence: a.cfg.Classifier.DataQualityThreshold,
			},
		},
		a.logger,
	)

	var archiver *s3blob.Archiver
	if deps.BlobWriter != nil && a.cfg.Aggregation.ArchiveReports {
		archiver = s3blob.NewArchiver(deps.BlobWriter, deps.SnapshotStore)
	}

	return service.NewAggregationService(
		orch,
		a.marketTypes(),
		deps.SnapshotStore,
		deps.SignalStore,
		deps.ResolutionStore,
		deps.AlertBus,
		deps.Notifier,
		archiver,
		a.logger,
	)
}

func (a *App) marketTypes() []domain.MarketType {
	types := make([]domain.MarketType, 0, len(a.cfg.Aggregation.MarketTypes))
	for _, mt := range a.cfg.Aggregation.MarketTypes {
		types = append(types, domain.MarketType(mt))
	}
	return types
}

func (a *App) buildBacktestAdapter(deps *Dependencies) *backtest.Adapter {
	return backtest.New(
		deps.SnapshotStore,
		deps.SignalStore,
		deps.ResolutionStore,
		deps.PriceStore,
		a.logger,
	)
}

func (a *App) buildServer(deps *Dependencies, svc *service.AggregationService) *server.Server {
	pings := map[string]handler.Pinger{}
	if deps.PostgresPing != nil {
		pings["postgres"] = deps.PostgresPing
	}
	if deps.RedisPing != nil {
		pings["redis"] = deps.RedisPing
	}

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(pings, a.logger),
		Markets:   handler.NewMarketHandler(deps.RecordCache, svc, a.logger),
		Alerts:    handler.NewAlertHandler(svc, a.logger),
		Signals:   handler.NewSignalHandler(svc, deps.SignalStore, a.logger),
		Backtest:  handler.NewBacktestHandler(a.buildBacktestAdapter(deps), a.logger),
		Aggregate: handler.NewAggregateHandler(svc, a.logger),
	}

	return server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, a.logger)
}

// AggregateMode runs one reconciliation cycle and exits.
func (a *App) AggregateMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting aggregate mode")

	svc := a.buildAggregationService(deps)
	result, err := svc.RunOnce(ctx)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "aggregation summary",
		slog.Int("records", len(result.Records)),
		slog.Int("matches", len(result.MatchedPairs)),
		slog.Int("opportunities", result.Summary.Opportunities),
		slog.Int("data_quality_issues", result.Summary.DataQualityIssues),
		slog.Int("resolution_risks", result.Summary.ResolutionRisks),
	)
	return nil
}

// WatchMode runs the periodic reconciliation loop until cancelled.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode")

	svc := a.buildAggregationService(deps)
	return svc.Watch(ctx, a.cfg.Aggregation.Interval.Duration)
}

// BacktestMode scores the persisted signal history once and exits.
func (a *App) BacktestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting backtest mode")

	adapter := a.buildBacktestAdapter(deps)
	now := time.Now().UTC()
	window := domain.TimeWindow{Start: now.Add(-backtestReportWindow), End: now}

	types := []domain.SignalType{
		domain.SignalEasingProbability,
		domain.SignalTighteningProbability,
		domain.SignalRecessionProbability,
	}

	for _, st := range types {
		report, err := adapter.ComputeSignalAccuracy(ctx, st, 0.5, window)
		if err != nil {
			return fmt.Errorf("app: backtest accuracy for %s: %w", st, err)
		}
		a.logger.InfoContext(ctx, "signal accuracy",
			slog.String("signal_type", string(st)),
			slog.Int("samples", report.SampleSize),
			slog.Float64("brier_score", report.BrierScore),
			slog.Float64("mean_absolute_error", report.MeanAbsoluteError),
			slog.Float64("calibration", report.Calibration),
		)

		regimes, err := adapter.AnalyzeByRegime(ctx, st, window)
		if err != nil {
			return fmt.Errorf("app: backtest regimes for %s: %w", st, err)
		}
		for _, reg := range regimes {
			a.logger.InfoContext(ctx, "regime accuracy",
				slog.String("signal_type", string(st)),
				slog.String("regime", reg.Regime),
				slog.Int("samples", reg.SampleSize),
				slog.Float64("accuracy", reg.Accuracy),
			)
		}
	}

	weights, err := adapter.ComputeOptimalWeights(ctx, types, window)
	if err != nil {
		return fmt.Errorf("app: backtest weights: %w", err)
	}
	for _, w := range weights {
		a.logger.InfoContext(ctx, "optimal blend weight",
			slog.String("signal_type", string(w.SignalType)),
			slog.Float64("weight", w.Weight),
			slog.Int("samples", w.SampleSize),
		)
	}
	return nil
}

// ServerMode serves the HTTP API without a background loop; aggregation runs
// only when triggered through the API.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	svc := a.buildAggregationService(deps)
	srv := a.buildServer(deps, svc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// FullMode runs the watch loop and the HTTP API together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	svc := a.buildAggregationService(deps)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Watch(ctx, a.cfg.Aggregation.Interval.Duration)
	})

	if a.cfg.Server.Enabled {
		srv := a.buildServer(deps, svc)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
