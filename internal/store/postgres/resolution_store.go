package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fedlens/fedlens/internal/domain"
)

// ResolutionStore implements domain.ResolutionStore using PostgreSQL.
type ResolutionStore struct {
	pool *pgxpool.Pool
}

// NewResolutionStore creates a ResolutionStore backed by the given pool.
func NewResolutionStore(pool *pgxpool.Pool) *ResolutionStore {
	return &ResolutionStore{pool: pool}
}

// Get returns the resolution for a ticker, or domain.ErrNotFound while the
// market is still open.
func (s *ResolutionStore) Get(ctx context.Context, ticker string) (domain.Resolution, error) {
	const query = `
		SELECT ticker, resolved_at, actual_outcome
		FROM market_resolutions
		WHERE ticker = $1`

	var res domain.Resolution
	err := s.pool.QueryRow(ctx, query, ticker).Scan(&res.Ticker, &res.ResolvedAt, &res.ActualOutcome)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Resolution{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("postgres: get resolution %s: %w", ticker, err)
	}
	return res, nil
}

// Upsert records a resolution, replacing any previous row for the ticker.
func (s *ResolutionStore) Upsert(ctx context.Context, res domain.Resolution) error {
	const query = `
		INSERT INTO market_resolutions (ticker, resolved_at, actual_outcome)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker) DO UPDATE SET
			resolved_at = EXCLUDED.resolved_at,
			actual_outcome = EXCLUDED.actual_outcome`

	if _, err := s.pool.Exec(ctx, query, res.Ticker, res.ResolvedAt, res.ActualOutcome); err != nil {
		return fmt.Errorf("postgres: upsert resolution %s: %w", res.Ticker, err)
	}
	return nil
}
