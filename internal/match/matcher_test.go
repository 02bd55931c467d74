package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fedlens/fedlens/internal/domain"
)

func binaryRecord(venue domain.Venue, ticker, question string, yes float64, closeTime time.Time) domain.MarketRecord {
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
		CloseTime:      closeTime,
		LiquidityScore: 0.8,
	}
}

func TestSimilarityIdenticalRecords(t *testing.T) {
	closeTime := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	a := binaryRecord(domain.VenuePolymarket, "FED-CUT", "Will the Fed cut rates in December?", 0.62, closeTime)
	b := binaryRecord(domain.VenueKalshi, "KXFED-CUT", "Will the Fed cut rates in December?", 0.57, closeTime)

	sim := Similarity(a, b, DefaultConfig())
	require.InDelta(t, 1.0, sim, 1e-9)
}

func TestSimilarityBounds(t *testing.T) {
	closeTime := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		a, b domain.MarketRecord
	}{
		{
			name: "related questions",
			a:    binaryRecord(domain.VenuePolymarket, "A", "Will the Fed cut rates in December 2025?", 0.6, closeTime),
			b:    binaryRecord(domain.VenueKalshi, "B", "Fed rate cut by December 2025?", 0.55, closeTime.Add(48*time.Hour)),
		},
		{
			name: "unrelated questions",
			a:    binaryRecord(domain.VenuePolymarket, "A", "Will the Fed cut rates in December?", 0.6, closeTime),
			b:    binaryRecord(domain.VenueKalshi, "B", "Will it snow in Miami?", 0.01, closeTime.AddDate(1, 0, 0)),
		},
		{
			name: "missing close times",
			a:    binaryRecord(domain.VenuePolymarket, "A", "Recession declared in 2026?", 0.3, time.Time{}),
			b:    binaryRecord(domain.VenueKalshi, "B", "Recession declared in 2026?", 0.25, time.Time{}),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sim := Similarity(tc.a, tc.b, DefaultConfig())
			require.GreaterOrEqual(t, sim, 0.0)
			require.LessOrEqual(t, sim, 1.0)
		})
	}
}

func TestFindMatchesRejectsSameVenue(t *testing.T) {
	closeTime := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	a := binaryRecord(domain.VenuePolymarket, "A", "Will the Fed cut rates in December?", 0.6, closeTime)
	b := binaryRecord(domain.VenuePolymarket, "B", "Will the Fed cut rates in December?", 0.6, closeTime)

	pairs := FindMatches([]domain.MarketRecord{a}, []domain.MarketRecord{b}, DefaultConfig())
	require.Empty(t, pairs)
}

func TestFindMatchesThreshold(t *testing.T) {
	closeTime := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	a := binaryRecord(domain.VenuePolymarket, "A", "Will the Fed cut rates at the December meeting?", 0.62, closeTime)
	near := binaryRecord(domain.VenueKalshi, "B", "Will the Fed cut rates at the December meeting?", 0.57, closeTime)
	far := binaryRecord(domain.VenueKalshi, "C", "Will Bitcoin close above 100k this year?", 0.4, closeTime.AddDate(0, 6, 0))

	pairs := FindMatches([]domain.MarketRecord{a}, []domain.MarketRecord{near, far}, DefaultConfig())
	require.Len(t, pairs, 1)
	require.Equal(t, "B", pairs[0].B.Ticker)
	require.InDelta(t, 0.05, pairs[0].Divergence, 1e-9)
}

func TestFindMatchesSortedBySimilarityDescending(t *testing.T) {
	closeTime := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	a := binaryRecord(domain.VenuePolymarket, "A", "Will the Fed cut rates in December 2025?", 0.6, closeTime)
	exact := binaryRecord(domain.VenueKalshi, "EXACT", "Will the Fed cut rates in December 2025?", 0.58, closeTime)
	later := binaryRecord(domain.VenueKalshi, "CLOSE", "Will the Fed cut rates in December 2025?", 0.5, closeTime.Add(3*24*time.Hour))

	cfg := DefaultConfig()
	cfg.MinSimilarity = 0.5
	pairs := FindMatches([]domain.MarketRecord{a}, []domain.MarketRecord{later, exact}, cfg)
	require.Len(t, pairs, 2)
	require.Equal(t, "EXACT", pairs[0].B.Ticker)
	require.GreaterOrEqual(t, pairs[0].Similarity, pairs[1].Similarity)
}

func TestTemporalSimilaritySteps(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		gap  time.Duration
		want float64
	}{
		{12 * time.Hour, 1.0},
		{24 * time.Hour, 1.0},
		{3 * 24 * time.Hour, 0.7},
		{20 * 24 * time.Hour, 0.4},
		{60 * 24 * time.Hour, 0.0},
	}
	for _, tc := range cases {
		require.InDelta(t, tc.want, temporalSimilarity(base, base.Add(tc.gap)), 1e-9, "gap %v", tc.gap)
		require.InDelta(t, tc.want, temporalSimilarity(base.Add(tc.gap), base), 1e-9, "gap %v reversed", tc.gap)
	}
	require.Zero(t, temporalSimilarity(time.Time{}, base))
}

func TestDivergenceYesOutcomes(t *testing.T) {
	closeTime := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	a := binaryRecord(domain.VenuePolymarket, "A", "q", 0.62, closeTime)
	b := binaryRecord(domain.VenueKalshi, "B", "q", 0.57, closeTime)
	require.InDelta(t, 0.05, Divergence(a, b), 1e-9)
	require.InDelta(t, Divergence(a, b), Divergence(b, a), 1e-12)
}

func TestDivergenceNoOverlappingLabels(t *testing.T) {
	a := domain.MarketRecord{
		Venue:    domain.VenuePolymarket,
		Outcomes: []domain.Outcome{{Label: "Candidate A", Probability: 0.5}},
	}
	b := domain.MarketRecord{
		Venue:    domain.VenueKalshi,
		Outcomes: []domain.Outcome{{Label: "Candidate B", Probability: 0.5}},
	}
	require.Zero(t, Divergence(a, b))
}

func TestTokenizeStripsStopWordsAndPunctuation(t *testing.T) {
	tokens := tokenize("Will the Fed cut rates by 0.25% in December?")
	require.True(t, tokens["fed"])
	require.True(t, tokens["cut"])
	require.True(t, tokens["rates"])
	require.True(t, tokens["december"])
	require.False(t, tokens["will"])
	require.False(t, tokens["the"])
	require.False(t, tokens["in"])
}
