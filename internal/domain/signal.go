package domain

import "time"

// SignalType names a blended cross-venue indicator.
type SignalType string

const (
	SignalEasingProbability     SignalType = "easing_probability"
	SignalTighteningProbability SignalType = "tightening_probability"
	SignalRecessionProbability  SignalType = "recession_probability"
	SignalUncertaintyIndex      SignalType = "uncertainty_index"
)

// VenueSignals is one venue's own view of the directional indicators,
// computed purely from its records. A missing key means the venue had no
// data for that indicator, which is different from reporting zero.
type VenueSignals map[SignalType]float64

// AggregatedSignals blends per-venue indicator values across all venues that
// reported one. Nil fields mean no venue had data; absence is information and
// is never collapsed to zero.
type AggregatedSignals struct {
	EasingProbability     *float64
	TighteningProbability *float64
	RecessionProbability  *float64
	UncertaintyIndex      *float64
	Timestamp             time.Time
	RecordCount           int
	Venues                []Venue
}

// MacroSignals are second-order indices derived from the blended signals and
// the matched-pair set.
type MacroSignals struct {
	// PolicyUncertaintyIndex is min/max of the easing vs tightening
	// probabilities; nil when either side is missing or the denominator is 0.
	PolicyUncertaintyIndex *float64
	// VenueDisagreementIndex is the mean divergence across matched pairs;
	// nil when no pairs were matched.
	VenueDisagreementIndex *float64
}

// ComputedSignal is one persisted signal observation, the unit the
// backtesting adapter scores. Outcome is the ground-truth resolution of the
// predicted event; nil means the market had not resolved when the signal was
// persisted, and such samples are excluded from every estimator.
type ComputedSignal struct {
	ID        string
	Type      SignalType
	Value     float64 // predicted probability [0,1]
	Ticker    string
	Timestamp time.Time
	Outcome   *bool
}
