package aggregate

import (
	"time"

	"github.com/fedlens/fedlens/internal/domain"
)

// blendSignals combines per-venue indicator values. When several venues
// report an indicator the blended value is their arithmetic mean; when only
// one does, its value is used as-is; when none do, the field stays nil.
// Absence carries information ("no data"), so it is never defaulted to 0.
func blendSignals(
	venueSignals map[domain.Venue]domain.VenueSignals,
	venues []domain.Venue,
	recordCount int,
) domain.AggregatedSignals {
	out := domain.AggregatedSignals{
		Timestamp:   time.Now().UTC(),
		RecordCount: recordCount,
		Venues:      venues,
	}
	out.EasingProbability = blend(venueSignals, venues, domain.SignalEasingProbability)
	out.TighteningProbability = blend(venueSignals, venues, domain.SignalTighteningProbability)
	out.RecessionProbability = blend(venueSignals, venues, domain.SignalRecessionProbability)
	out.UncertaintyIndex = blend(venueSignals, venues, domain.SignalUncertaintyIndex)
	return out
}

func blend(
	venueSignals map[domain.Venue]domain.VenueSignals,
	venues []domain.Venue,
	sig domain.SignalType,
) *float64 {
	var sum float64
	var n int
	for _, v := range venues {
		if val, ok := venueSignals[v][sig]; ok {
			sum += val
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

// macroSignals derives second-order indices from the blended signals and the
// matched-pair set. Each index is nil whenever its inputs are missing or its
// denominator would be zero; 0/0 is never silently substituted with 0.
func macroSignals(signals domain.AggregatedSignals, pairs []domain.MatchedPair) domain.MacroSignals {
	var macro domain.MacroSignals

	if signals.EasingProbability != nil && signals.TighteningProbability != nil {
		a, b := *signals.EasingProbability, *signals.TighteningProbability
		lo, hi := a, b
		if lo > hi {
			lo, hi = hi, lo
		}
		if hi > 0 {
			idx := lo / hi
			macro.PolicyUncertaintyIndex = &idx
		}
	}

	if len(pairs) > 0 {
		var sum float64
		for _, p := range pairs {
			sum += p.Divergence
		}
		idx := sum / float64(len(pairs))
		macro.VenueDisagreementIndex = &idx
	}

	return macro
}
