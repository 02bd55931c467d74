package domain

import "context"

// VenueClient is the per-venue collaborator the orchestrator fans out to.
// FetchMarkets may fail; the orchestrator isolates failures per venue.
// CalculateScores is pure over the given records and never fails.
type VenueClient interface {
	Venue() Venue
	FetchMarkets(ctx context.Context, marketTypes []MarketType) ([]MarketRecord, error)
	CalculateScores(records []MarketRecord) VenueSignals
}
