package handler

import (
	"context"
	"time"

	"github.com/fedlens/fedlens/internal/aggregate"
)

// ResultProvider exposes the most recent aggregation run to read-side
// handlers. ok is false before the first run completes.
type ResultProvider interface {
	Latest() (result *aggregate.Result, asOf time.Time, ok bool)
}

// Runner triggers one aggregation run on demand.
type Runner interface {
	RunOnce(ctx context.Context) (*aggregate.Result, error)
}
