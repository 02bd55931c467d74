package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fedlens/fedlens/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL. Outcomes
// are stored as a JSONB array per snapshot.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a SnapshotStore backed by the given pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

type outcomeRow struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Price       float64 `json:"price"`
	Volume24h   float64 `json:"volume_24h,omitempty"`
}

// InsertBatch stores a batch of snapshots in one round trip.
func (s *SnapshotStore) InsertBatch(ctx context.Context, snaps []domain.MarketSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO market_snapshots (
			id, ticker, venue, market_type, question, outcomes,
			liquidity_score, volume_24h, ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	for _, snap := range snaps {
		outcomes := make([]outcomeRow, 0, len(snap.Outcomes))
		for _, o := range snap.Outcomes {
			outcomes = append(outcomes, outcomeRow{
				Label:       o.Label,
				Probability: o.Probability,
				Price:       o.Price,
				Volume24h:   o.Volume24h,
			})
		}
		data, err := json.Marshal(outcomes)
		if err != nil {
			return fmt.Errorf("postgres: marshal outcomes for %s: %w", snap.ID, err)
		}
		batch.Queue(query,
			snap.ID, snap.Ticker, string(snap.Venue), string(snap.MarketType),
			snap.Question, data, snap.LiquidityScore, snap.Volume24h, snap.Timestamp,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range snaps {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: insert snapshot batch: %w", err)
		}
	}
	return nil
}

const snapshotCols = `id, ticker, venue, market_type, question, outcomes,
	liquidity_score, volume_24h, ts`

// Find returns snapshots matching the filter, ordered by timestamp ascending.
func (s *SnapshotStore) Find(ctx context.Context, filter domain.SnapshotFilter) ([]domain.MarketSnapshot, error) {
	query := `SELECT ` + snapshotCols + ` FROM market_snapshots`
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Tickers) > 0 {
		conds = append(conds, "ticker = ANY("+arg(filter.Tickers)+")")
	}
	if len(filter.Venues) > 0 {
		venues := make([]string, 0, len(filter.Venues))
		for _, v := range filter.Venues {
			venues = append(venues, string(v))
		}
		conds = append(conds, "venue = ANY("+arg(venues)+")")
	}
	if len(filter.MarketTypes) > 0 {
		types := make([]string, 0, len(filter.MarketTypes))
		for _, t := range filter.MarketTypes {
			types = append(types, string(t))
		}
		conds = append(conds, "market_type = ANY("+arg(types)+")")
	}
	if !filter.From.IsZero() {
		conds = append(conds, "ts >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "ts <= "+arg(filter.To))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ts ASC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: find snapshots: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// GetByTicker returns all snapshots for one ticker in [from, to], ordered by
// timestamp ascending.
func (s *SnapshotStore) GetByTicker(ctx context.Context, ticker string, from, to time.Time) ([]domain.MarketSnapshot, error) {
	const query = `SELECT ` + snapshotCols + `
		FROM market_snapshots
		WHERE ticker = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC`

	rows, err := s.pool.Query(ctx, query, ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: snapshots for %s: %w", ticker, err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func scanSnapshots(rows pgx.Rows) ([]domain.MarketSnapshot, error) {
	var snaps []domain.MarketSnapshot
	for rows.Next() {
		var snap domain.MarketSnapshot
		var venue, marketType string
		var outcomeData []byte

		if err := rows.Scan(
			&snap.ID, &snap.Ticker, &venue, &marketType, &snap.Question,
			&outcomeData, &snap.LiquidityScore, &snap.Volume24h, &snap.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot: %w", err)
		}
		snap.Venue = domain.Venue(venue)
		snap.MarketType = domain.MarketType(marketType)

		var outcomes []outcomeRow
		if err := json.Unmarshal(outcomeData, &outcomes); err != nil {
			return nil, fmt.Errorf("postgres: decode outcomes for %s: %w", snap.ID, err)
		}
		for _, o := range outcomes {
			snap.Outcomes = append(snap.Outcomes, domain.Outcome{
				Label:       o.Label,
				Probability: o.Probability,
				Price:       o.Price,
				Volume24h:   o.Volume24h,
			})
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: snapshot rows: %w", err)
	}
	return snaps, nil
}
