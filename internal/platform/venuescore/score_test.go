package venuescore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedlens/fedlens/internal/domain"
)

func binary(mt domain.MarketType, question string, yes float64) domain.MarketRecord {
	return domain.MarketRecord{
		EventID:    "kalshi:" + question,
		Venue:      domain.VenueKalshi,
		MarketType: mt,
		Ticker:     "T",
		Question:   question,
		Outcomes: []domain.Outcome{
			{Label: "Yes", Probability: yes},
			{Label: "No", Probability: 1 - yes},
		},
	}
}

func TestTypeFor(t *testing.T) {
	cases := []struct {
		name   string
		record domain.MarketRecord
		want   domain.SignalType
		ok     bool
	}{
		{"rate cut", binary(domain.MarketTypeRatePolicy, "Will the Fed cut rates?", 0.6), domain.SignalEasingProbability, true},
		{"rate lower", binary(domain.MarketTypeRatePolicy, "Fed to lower the target range?", 0.6), domain.SignalEasingProbability, true},
		{"rate hike", binary(domain.MarketTypeRatePolicy, "Will the Fed hike in June?", 0.2), domain.SignalTighteningProbability, true},
		{"rate raise", binary(domain.MarketTypeRatePolicy, "Will the Fed raise rates?", 0.2), domain.SignalTighteningProbability, true},
		{"rate hold is directionless", binary(domain.MarketTypeRatePolicy, "Will the Fed hold rates steady?", 0.7), "", false},
		{"recession", binary(domain.MarketTypeRecession, "US recession in 2026?", 0.3), domain.SignalRecessionProbability, true},
		{"macro release", binary(domain.MarketTypeMacroRelease, "CPI above 3%?", 0.4), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := TypeFor(tc.record)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestScoreAveragesPerIndicator(t *testing.T) {
	signals := Score([]domain.MarketRecord{
		binary(domain.MarketTypeRatePolicy, "Will the Fed cut rates in June?", 0.6),
		binary(domain.MarketTypeRatePolicy, "Will the Fed cut rates in July?", 0.8),
		binary(domain.MarketTypeRatePolicy, "Will the Fed hike rates in June?", 0.1),
		binary(domain.MarketTypeRecession, "US recession in 2026?", 0.3),
	})

	require.InDelta(t, 0.7, signals[domain.SignalEasingProbability], 1e-9)
	require.InDelta(t, 0.1, signals[domain.SignalTighteningProbability], 1e-9)
	require.InDelta(t, 0.3, signals[domain.SignalRecessionProbability], 1e-9)

	// Uncertainty is the spread of all rate-policy yes-probabilities.
	require.InDelta(t, 0.7, signals[domain.SignalUncertaintyIndex], 1e-9)
}

func TestScoreSingleRatePolicyMarketHasNoUncertainty(t *testing.T) {
	signals := Score([]domain.MarketRecord{
		binary(domain.MarketTypeRatePolicy, "Will the Fed cut rates in June?", 0.6),
	})

	_, ok := signals[domain.SignalUncertaintyIndex]
	require.False(t, ok)
}

func TestScoreMissingIndicatorsAbsentNotZero(t *testing.T) {
	signals := Score([]domain.MarketRecord{
		binary(domain.MarketTypeMacroRelease, "CPI above 3%?", 0.4),
	})

	require.Empty(t, signals)
}

func TestScoreSkipsRecordsWithoutYesOutcome(t *testing.T) {
	r := binary(domain.MarketTypeRecession, "US recession in 2026?", 0.3)
	r.Outcomes = []domain.Outcome{{Label: "Maybe", Probability: 0.3}}

	signals := Score([]domain.MarketRecord{r})
	_, ok := signals[domain.SignalRecessionProbability]
	require.False(t, ok)
}
