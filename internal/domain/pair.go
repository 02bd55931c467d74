package domain

// MatchedPair is the result of reconciling two records from different venues
// that appear to represent the same real-world question. Pairs are built fresh
// per matching call and never mutated or persisted.
type MatchedPair struct {
	A          MarketRecord
	B          MarketRecord
	Similarity float64 // [0,1]
	Divergence float64 // [0,1] absolute probability gap
}

// AlertKind classifies what a divergent matched pair most likely means.
type AlertKind string

const (
	// AlertOpportunity is a tradeable-looking gap: similar markets, liquid
	// both sides, moderate divergence.
	AlertOpportunity AlertKind = "opportunity"
	// AlertDataQuality flags gaps so large they more likely reflect stale or
	// bad data on one venue than a real edge.
	AlertDataQuality AlertKind = "data_quality_issue"
	// AlertResolutionRisk flags pairs whose similarity is low enough that the
	// two markets probably do not resolve on identical criteria.
	AlertResolutionRisk AlertKind = "resolution_risk"
)

// Alert is the classifier's verdict on a single matched pair.
type Alert struct {
	Kind        AlertKind
	Pair        MatchedPair
	Divergence  float64
	HighVenue   Venue // venue pricing the yes outcome higher
	LowVenue    Venue
	Description string
}

// AlertSummary is a pure roll-up over a batch of alerts.
type AlertSummary struct {
	Total             int
	Opportunities     int
	DataQualityIssues int
	ResolutionRisks   int
	AvgDivergence     float64
	MaxDivergence     float64
}
