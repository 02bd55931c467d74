package domain

import "time"

// TimeWindow bounds a historical query. End is exclusive of nothing in
// particular; stores treat both bounds as inclusive.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// MarketSnapshot is one persisted point-in-time observation of a market,
// the raw material for backtesting.
type MarketSnapshot struct {
	ID             string
	Ticker         string
	Venue          Venue
	MarketType     MarketType
	Question       string
	Outcomes       []Outcome
	Timestamp      time.Time
	LiquidityScore float64
	Volume24h      float64
}

// ProbabilityPoint is one time-step of a historical series: a timestamp and
// the probability of each outcome label at that time.
type ProbabilityPoint struct {
	Timestamp time.Time
	Outcomes  map[string]float64
}

// Resolution records how a market settled. Resolutions are immutable once
// known, which is what makes read-through caching of them safe.
type Resolution struct {
	Ticker        string
	ResolvedAt    time.Time
	ActualOutcome string // winning outcome label, e.g. "yes"
}

// HistoricalSeries is a ticker's full probability history, points ordered by
// non-decreasing timestamp. Resolution is nil while the market is still open.
type HistoricalSeries struct {
	Ticker     string
	Venue      Venue
	MarketType MarketType
	Question   string
	Points     []ProbabilityPoint
	Resolution *Resolution
}

// PricePoint is one observation of an external comparison instrument, used
// for lead/lag correlation studies.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}
