// Package venuescore computes a venue's own directional indicators from its
// records. Both venue clients share this computation so their indicators are
// directly comparable before blending.
package venuescore

import (
	"strings"

	"github.com/fedlens/fedlens/internal/domain"
)

// TypeFor maps one record to the directional indicator its yes-probability
// feeds, or false when the record carries no directional reading.
func TypeFor(r domain.MarketRecord) (domain.SignalType, bool) {
	switch r.MarketType {
	case domain.MarketTypeRatePolicy:
		q := strings.ToLower(r.Question)
		if strings.Contains(q, "cut") || strings.Contains(q, "lower") {
			return domain.SignalEasingProbability, true
		}
		if strings.Contains(q, "hike") || strings.Contains(q, "raise") {
			return domain.SignalTighteningProbability, true
		}
		return "", false
	case domain.MarketTypeRecession:
		return domain.SignalRecessionProbability, true
	}
	return "", false
}

// Score derives the per-venue indicator map: average yes-probability of
// rate-policy markets that read as easing vs tightening, average
// yes-probability of recession markets, and the spread of rate-policy
// yes-probabilities as an uncertainty proxy. Pure; a missing indicator is
// simply absent from the map.
func Score(records []domain.MarketRecord) domain.VenueSignals {
	signals := make(domain.VenueSignals)

	sums := make(map[domain.SignalType]float64)
	counts := make(map[domain.SignalType]int)
	var rateMin, rateMax float64
	var rateN int

	for _, r := range records {
		yes, ok := r.YesProbability()
		if !ok {
			continue
		}
		if r.MarketType == domain.MarketTypeRatePolicy {
			if rateN == 0 || yes < rateMin {
				rateMin = yes
			}
			if rateN == 0 || yes > rateMax {
				rateMax = yes
			}
			rateN++
		}
		if st, ok := TypeFor(r); ok {
			sums[st] += yes
			counts[st]++
		}
	}

	for st, n := range counts {
		signals[st] = sums[st] / float64(n)
	}
	if rateN > 1 {
		signals[domain.SignalUncertaintyIndex] = rateMax - rateMin
	}
	return signals
}
