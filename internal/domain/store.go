package domain

import (
	"context"
	"time"
)

// SnapshotFilter narrows a snapshot query. Zero-value fields are ignored.
type SnapshotFilter struct {
	Tickers     []string
	Venues      []Venue
	MarketTypes []MarketType
	From        time.Time
	To          time.Time
	Limit       int
}

// SignalFilter narrows a computed-signal query. Zero-value fields are ignored.
type SignalFilter struct {
	Types []SignalType
	From  time.Time
	To    time.Time
	Limit int
}

// SnapshotStore persists market snapshots.
type SnapshotStore interface {
	InsertBatch(ctx context.Context, snaps []MarketSnapshot) error
	Find(ctx context.Context, filter SnapshotFilter) ([]MarketSnapshot, error)
	GetByTicker(ctx context.Context, ticker string, from, to time.Time) ([]MarketSnapshot, error)
}

// SignalStore persists computed signals.
type SignalStore interface {
	InsertBatch(ctx context.Context, signals []ComputedSignal) error
	Find(ctx context.Context, filter SignalFilter) ([]ComputedSignal, error)
}

// ResolutionStore persists market resolutions. Get returns ErrNotFound while
// a market is still open.
type ResolutionStore interface {
	Get(ctx context.Context, ticker string) (Resolution, error)
	Upsert(ctx context.Context, res Resolution) error
}

// InstrumentPriceStore serves external comparison price series (e.g. a rate
// future or an equity index) for lead/lag studies.
type InstrumentPriceStore interface {
	GetPrices(ctx context.Context, instrument string, from, to time.Time) ([]PricePoint, error)
}
