package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fedlens/fedlens/internal/domain"
)

// PriceStore implements domain.InstrumentPriceStore using PostgreSQL.
type PriceStore struct {
	pool *pgxpool.Pool
}

// NewPriceStore creates a PriceStore backed by the given pool.
func NewPriceStore(pool *pgxpool.Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

// GetPrices returns the price series for an instrument in [from, to], ordered
// by timestamp ascending.
func (s *PriceStore) GetPrices(ctx context.Context, instrument string, from, to time.Time) ([]domain.PricePoint, error) {
	const query = `
		SELECT ts, price
		FROM instrument_prices
		WHERE instrument = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC`

	rows, err := s.pool.Query(ctx, query, instrument, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: prices for %s: %w", instrument, err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Timestamp, &p.Price); err != nil {
			return nil, fmt.Errorf("postgres: scan price: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: price rows: %w", err)
	}
	return points, nil
}

// InsertPrices stores external instrument observations, ignoring duplicates.
func (s *PriceStore) InsertPrices(ctx context.Context, instrument string, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	const query = `
		INSERT INTO instrument_prices (instrument, ts, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (instrument, ts) DO NOTHING`

	for _, p := range points {
		if _, err := s.pool.Exec(ctx, query, instrument, p.Timestamp, p.Price); err != nil {
			return fmt.Errorf("postgres: insert price for %s: %w", instrument, err)
		}
	}
	return nil
}
