package domain

import "context"

// RecordCache holds the most recent fetched record batch per venue so
// read-side consumers (API handlers, projections) do not trigger refetches.
type RecordCache interface {
	SetRecords(ctx context.Context, venue Venue, records []MarketRecord) error
	GetRecords(ctx context.Context, venue Venue) ([]MarketRecord, error)
}

// AlertBus publishes classified alerts for downstream consumers.
type AlertBus interface {
	Publish(ctx context.Context, alert Alert) error
}
