package aggregate

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fedlens/fedlens/internal/domain"
	"github.com/fedlens/fedlens/internal/platform/venuescore"
)

// fakeClient is an in-memory venue collaborator returning canned records.
type fakeClient struct {
	venue   domain.Venue
	records []domain.MarketRecord
	err     error
}

func (f *fakeClient) Venue() domain.Venue { return f.venue }

func (f *fakeClient) FetchMarkets(ctx context.Context, marketTypes []domain.MarketType) ([]domain.MarketRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeClient) CalculateScores(records []domain.MarketRecord) domain.VenueSignals {
	return venuescore.Score(records)
}

func record(venue domain.Venue, ticker, question string, yes, liquidity float64) domain.MarketRecord {
	return domain.MarketRecord{
		EventID:    string(venue) + ":" + ticker,
		Venue:      venue,
		MarketType: domain.MarketTypeRatePolicy,
		Ticker:     ticker,
		Question:   question,
		Outcomes: []domain.Outcome{
			{Label: "Yes", Probability: yes},
			{Label: "No", Probability: 1 - yes},
		},
		CloseTime:      time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC),
		LiquidityScore: liquidity,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestOrchestrator(clients ...domain.VenueClient) *Orchestrator {
	cfg := DefaultConfig()
	cfg.MinLiquidityScore = 0.2
	return NewOrchestrator(clients, nil, nil, cfg, testLogger())
}

func TestGetAllMarketDataMatchesAcrossVenues(t *testing.T) {
	poly := &fakeClient{
		venue: domain.VenuePolymarket,
		records: []domain.MarketRecord{
			record(domain.VenuePolymarket, "PM-CUT", "Will the Fed cut rates at the December meeting?", 0.62, 0.8),
		},
	}
	kalshi := &fakeClient{
		venue: domain.VenueKalshi,
		records: []domain.MarketRecord{
			record(domain.VenueKalshi, "KX-CUT", "Will the Fed cut rates at the December meeting?", 0.52, 0.8),
		},
	}

	result, err := newTestOrchestrator(poly, kalshi).GetAllMarketData(
		context.Background(), []domain.MarketType{domain.MarketTypeRatePolicy})
	require.NoError(t, err)

	require.Len(t, result.Records, 2)
	require.Len(t, result.MatchedPairs, 1)
	require.Len(t, result.Alerts, 1)
	require.Equal(t, domain.AlertOpportunity, result.Alerts[0].Kind)
	require.Equal(t, 1, result.Summary.Opportunities)
}

func TestGetAllMarketDataIsolatesFailingVenue(t *testing.T) {
	poly := &fakeClient{
		venue: domain.VenuePolymarket,
		records: []domain.MarketRecord{
			record(domain.VenuePolymarket, "PM-CUT", "Will the Fed cut rates in December?", 0.62, 0.8),
		},
	}
	kalshi := &fakeClient{
		venue: domain.VenueKalshi,
		err:   errors.New("kalshi is down"),
	}

	result, err := newTestOrchestrator(poly, kalshi).GetAllMarketData(
		context.Background(), []domain.MarketType{domain.MarketTypeRatePolicy})
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	require.Equal(t, domain.VenuePolymarket, result.Records[0].Venue)
	require.Empty(t, result.MatchedPairs)
	require.Equal(t, []domain.Venue{domain.VenuePolymarket}, result.Signals.Venues)
}

func TestGetAllMarketDataDeterministicRecordOrder(t *testing.T) {
	poly := &fakeClient{
		venue: domain.VenuePolymarket,
		records: []domain.MarketRecord{
			record(domain.VenuePolymarket, "PM-1", "Will the Fed cut rates in March?", 0.3, 0.8),
		},
	}
	kalshi := &fakeClient{
		venue: domain.VenueKalshi,
		records: []domain.MarketRecord{
			record(domain.VenueKalshi, "KX-1", "Will the Fed hike rates in March?", 0.1, 0.8),
		},
	}
	orch := newTestOrchestrator(poly, kalshi)

	for i := 0; i < 10; i++ {
		result, err := orch.GetAllMarketData(context.Background(), []domain.MarketType{domain.MarketTypeRatePolicy})
		require.NoError(t, err)
		require.Equal(t, "PM-1", result.Records[0].Ticker)
		require.Equal(t, "KX-1", result.Records[1].Ticker)
	}
}

func TestGetAllMarketDataFiltersIlliquidAndInvalid(t *testing.T) {
	invalid := record(domain.VenuePolymarket, "PM-BAD", "bad", 0.5, 0.8)
	invalid.Ticker = ""
	poly := &fakeClient{
		venue: domain.VenuePolymarket,
		records: []domain.MarketRecord{
			record(domain.VenuePolymarket, "PM-OK", "Will the Fed cut rates?", 0.6, 0.8),
			record(domain.VenuePolymarket, "PM-THIN", "Will the Fed cut rates twice?", 0.4, 0.05),
			invalid,
		},
	}

	result, err := newTestOrchestrator(poly).GetAllMarketData(
		context.Background(), []domain.MarketType{domain.MarketTypeRatePolicy})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Equal(t, "PM-OK", result.Records[0].Ticker)
}

func TestBlendSignalsAbsenceIsNotZero(t *testing.T) {
	venueSignals := map[domain.Venue]domain.VenueSignals{
		domain.VenuePolymarket: {
			domain.SignalEasingProbability: 0.6,
		},
		domain.VenueKalshi: {
			domain.SignalEasingProbability:     0.5,
			domain.SignalTighteningProbability: 0.2,
		},
	}
	venues := []domain.Venue{domain.VenuePolymarket, domain.VenueKalshi}

	blended := blendSignals(venueSignals, venues, 4)

	require.NotNil(t, blended.EasingProbability)
	require.InDelta(t, 0.55, *blended.EasingProbability, 1e-9)

	// Only one venue reported tightening; the blend is that venue's value,
	// not an average against an implicit zero.
	require.NotNil(t, blended.TighteningProbability)
	require.InDelta(t, 0.2, *blended.TighteningProbability, 1e-9)

	require.Nil(t, blended.RecessionProbability)
	require.Nil(t, blended.UncertaintyIndex)
	require.Equal(t, 4, blended.RecordCount)
}

func TestMacroSignalsUncertaintyIndex(t *testing.T) {
	easing, tightening := 0.6, 0.3
	signals := domain.AggregatedSignals{
		EasingProbability:     &easing,
		TighteningProbability: &tightening,
	}

	macro := macroSignals(signals, nil)
	require.NotNil(t, macro.PolicyUncertaintyIndex)
	require.InDelta(t, 0.5, *macro.PolicyUncertaintyIndex, 1e-9)
	require.Nil(t, macro.VenueDisagreementIndex)
}

func TestMacroSignalsZeroDenominator(t *testing.T) {
	easing, tightening := 0.0, 0.0
	signals := domain.AggregatedSignals{
		EasingProbability:     &easing,
		TighteningProbability: &tightening,
	}

	macro := macroSignals(signals, nil)
	require.Nil(t, macro.PolicyUncertaintyIndex)
}

func TestMacroSignalsDisagreementIndex(t *testing.T) {
	pairs := []domain.MatchedPair{
		{Divergence: 0.10},
		{Divergence: 0.20},
	}
	macro := macroSignals(domain.AggregatedSignals{}, pairs)
	require.NotNil(t, macro.VenueDisagreementIndex)
	require.InDelta(t, 0.15, *macro.VenueDisagreementIndex, 1e-9)
}

func TestResultProjections(t *testing.T) {
	result := &Result{
		Records: []domain.MarketRecord{
			record(domain.VenuePolymarket, "PM-CPI", "Will CPI come in above 3 percent?", 0.4, 0.8),
			record(domain.VenueKalshi, "KX-CUT", "Will the Fed cut rates in December?", 0.6, 0.8),
		},
	}
	result.Records[0].MarketType = domain.MarketTypeMacroRelease

	rate := result.RatePolicyMarkets()
	require.Len(t, rate, 1)
	require.Equal(t, "KX-CUT", rate[0].Ticker)

	indicators := result.EconomicIndicatorMarkets()
	require.Len(t, indicators, 1)
	require.Equal(t, "PM-CPI", indicators[0].Ticker)

	filtered := result.FilterByKeywords([]string{"december"})
	require.Len(t, filtered, 1)
	require.Equal(t, "KX-CUT", filtered[0].Ticker)
}
