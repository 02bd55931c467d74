package domain

import (
	"fmt"
	"strings"
	"time"
)

// Venue identifies an external prediction-market platform.
type Venue string

const (
	VenuePolymarket Venue = "polymarket"
	VenueKalshi     Venue = "kalshi"
)

// MarketType is the macro category a market belongs to.
type MarketType string

const (
	MarketTypeRatePolicy   MarketType = "rate_policy"
	MarketTypeMacroRelease MarketType = "macro_data_release"
	MarketTypeRecession    MarketType = "recession"
	MarketTypeGeopolitical MarketType = "geopolitical"
	MarketTypeRegulatory   MarketType = "regulatory"
	MarketTypeElection     MarketType = "election"
)

// Outcome is a single outcome leg of a market with its implied probability.
type Outcome struct {
	Label       string
	Probability float64 // [0,1]
	Price       float64
	Volume24h   float64
}

// MarketRecord is one observation of a market on one venue. Records are value
// objects: once constructed they are never mutated.
type MarketRecord struct {
	EventID        string // venue-prefixed unique ID, e.g. "kalshi:FED-24DEC"
	Venue          Venue
	MarketType     MarketType
	Ticker         string // venue-native identifier
	Question       string
	Outcomes       []Outcome
	CloseTime      time.Time // expected resolution/event time; zero when unknown
	AsOf           time.Time
	LastUpdated    time.Time
	LiquidityScore float64 // [0,1]; 0 when the venue reports none
	Volume24h      float64
	OpenInterest   float64
}

// Validate rejects records that cannot participate in reconciliation:
// empty identifiers, unknown venues, or out-of-range outcome probabilities.
func (r MarketRecord) Validate() error {
	if strings.TrimSpace(r.EventID) == "" {
		return fmt.Errorf("market record: %w: empty event id", ErrInvalidRecord)
	}
	if r.Venue == "" {
		return fmt.Errorf("market record %s: %w: empty venue", r.EventID, ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Ticker) == "" {
		return fmt.Errorf("market record %s: %w: empty ticker", r.EventID, ErrInvalidRecord)
	}
	for _, o := range r.Outcomes {
		if o.Probability < 0 || o.Probability > 1 {
			return fmt.Errorf("market record %s: %w: outcome %q probability %f out of [0,1]",
				r.EventID, ErrInvalidRecord, o.Label, o.Probability)
		}
	}
	if r.LiquidityScore < 0 || r.LiquidityScore > 1 {
		return fmt.Errorf("market record %s: %w: liquidity score %f out of [0,1]",
			r.EventID, ErrInvalidRecord, r.LiquidityScore)
	}
	return nil
}

// YesProbability returns the probability of the outcome labeled "yes"
// (case-insensitive) and whether such an outcome exists. Every component that
// needs yes-side attribution goes through this helper so matching behavior
// never diverges between callers.
func (r MarketRecord) YesProbability() (float64, bool) {
	for _, o := range r.Outcomes {
		if strings.EqualFold(o.Label, "yes") {
			return o.Probability, true
		}
	}
	return 0, false
}

// OutcomeProbability returns the probability of the outcome whose label
// matches (case-insensitive), and whether it was found.
func (r MarketRecord) OutcomeProbability(label string) (float64, bool) {
	for _, o := range r.Outcomes {
		if strings.EqualFold(o.Label, label) {
			return o.Probability, true
		}
	}
	return 0, false
}

// IsBinary reports whether the market has exactly two outcomes.
func (r MarketRecord) IsBinary() bool {
	return len(r.Outcomes) == 2
}
