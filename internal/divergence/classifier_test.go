package divergence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedlens/fedlens/internal/domain"
)

func pair(yesA, yesB, similarity, liqA, liqB float64) domain.MatchedPair {
	a := domain.MarketRecord{
		EventID: "polymarket:A", Venue: domain.VenuePolymarket, Ticker: "A",
		Outcomes: []domain.Outcome{
			{Label: "Yes", Probability: yesA},
			{Label: "No", Probability: 1 - yesA},
		},
		LiquidityScore: liqA,
	}
	b := domain.MarketRecord{
		EventID: "kalshi:B", Venue: domain.VenueKalshi, Ticker: "B",
		Outcomes: []domain.Outcome{
			{Label: "Yes", Probability: yesB},
			{Label: "No", Probability: 1 - yesB},
		},
		LiquidityScore: liqB,
	}
	div := yesA - yesB
	if div < 0 {
		div = -div
	}
	return domain.MatchedPair{A: a, B: b, Similarity: similarity, Divergence: div}
}

func TestAnalyzeClassification(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		name string
		pair domain.MatchedPair
		want domain.AlertKind
	}{
		{"opportunity", pair(0.62, 0.52, 0.95, 0.8, 0.8), domain.AlertOpportunity},
		{"data quality at ceiling", pair(0.80, 0.50, 0.95, 0.8, 0.8), domain.AlertDataQuality},
		{"resolution risk below actionable similarity", pair(0.62, 0.52, 0.75, 0.8, 0.8), domain.AlertResolutionRisk},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alerts := Analyze([]domain.MatchedPair{tc.pair}, cfg)
			require.Len(t, alerts, 1)
			require.Equal(t, tc.want, alerts[0].Kind)
		})
	}
}

func TestAnalyzeDataQualityTakesPrecedenceOverSimilarity(t *testing.T) {
	// A pair that is both above the divergence ceiling and below the
	// actionable similarity must classify as data quality.
	p := pair(0.90, 0.40, 0.72, 0.9, 0.9)
	alerts := Analyze([]domain.MatchedPair{p}, DefaultConfig())
	require.Len(t, alerts, 1)
	require.Equal(t, domain.AlertDataQuality, alerts[0].Kind)
}

func TestAnalyzeLiquidityGate(t *testing.T) {
	cfg := DefaultConfig()

	// Either side below the gate suppresses the alert.
	require.Empty(t, Analyze([]domain.MatchedPair{pair(0.62, 0.42, 0.95, 0.1, 0.9)}, cfg))
	require.Empty(t, Analyze([]domain.MatchedPair{pair(0.62, 0.42, 0.95, 0.9, 0.1)}, cfg))
	require.Len(t, Analyze([]domain.MatchedPair{pair(0.62, 0.42, 0.95, 0.3, 0.3)}, cfg), 1)
}

func TestAnalyzeDivergenceFloor(t *testing.T) {
	alerts := Analyze([]domain.MatchedPair{pair(0.60, 0.58, 0.95, 0.8, 0.8)}, DefaultConfig())
	require.Empty(t, alerts)
}

func TestAnalyzeSkipsPairsWithoutYesOutcome(t *testing.T) {
	p := pair(0.62, 0.42, 0.95, 0.8, 0.8)
	p.A.Outcomes = []domain.Outcome{{Label: "Candidate A", Probability: 0.62}}
	require.Empty(t, Analyze([]domain.MatchedPair{p}, DefaultConfig()))
}

func TestAnalyzeHighLowAttribution(t *testing.T) {
	alerts := Analyze([]domain.MatchedPair{pair(0.45, 0.55, 0.95, 0.8, 0.8)}, DefaultConfig())
	require.Len(t, alerts, 1)
	require.Equal(t, domain.VenueKalshi, alerts[0].HighVenue)
	require.Equal(t, domain.VenuePolymarket, alerts[0].LowVenue)
}

func TestAnalyzeSortedByDivergenceDescending(t *testing.T) {
	pairs := []domain.MatchedPair{
		pair(0.60, 0.52, 0.95, 0.8, 0.8),
		pair(0.60, 0.45, 0.95, 0.8, 0.8),
	}
	alerts := Analyze(pairs, DefaultConfig())
	require.Len(t, alerts, 2)
	require.Greater(t, alerts[0].Divergence, alerts[1].Divergence)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	require.Zero(t, summary.Total)
	require.Zero(t, summary.AvgDivergence)
	require.Zero(t, summary.MaxDivergence)
}

func TestSummarizeCountsAndStats(t *testing.T) {
	alerts := Analyze([]domain.MatchedPair{
		pair(0.62, 0.52, 0.95, 0.8, 0.8), // opportunity, div 0.10
		pair(0.80, 0.50, 0.95, 0.8, 0.8), // data quality, div 0.30
		pair(0.62, 0.52, 0.75, 0.8, 0.8), // resolution risk, div 0.10
	}, DefaultConfig())
	summary := Summarize(alerts)

	require.Equal(t, 3, summary.Total)
	require.Equal(t, 1, summary.Opportunities)
	require.Equal(t, 1, summary.DataQualityIssues)
	require.Equal(t, 1, summary.ResolutionRisks)
	require.InDelta(t, 0.30, summary.MaxDivergence, 1e-9)
	require.InDelta(t, 0.5/3, summary.AvgDivergence, 1e-9)
}
