package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fedlens/fedlens/internal/domain"
)

// SignalStore implements domain.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *pgxpool.Pool
}

// NewSignalStore creates a SignalStore backed by the given pool.
func NewSignalStore(pool *pgxpool.Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// InsertBatch stores a batch of computed signals in one round trip.
func (s *SignalStore) InsertBatch(ctx context.Context, signals []domain.ComputedSignal) error {
	if len(signals) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO computed_signals (id, signal_type, value, ticker, ts, outcome)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET outcome = EXCLUDED.outcome`

	for _, sig := range signals {
		batch.Queue(query,
			sig.ID, string(sig.Type), sig.Value, sig.Ticker, sig.Timestamp, sig.Outcome,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range signals {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: insert signal batch: %w", err)
		}
	}
	return nil
}

// Find returns signals matching the filter, ordered by timestamp ascending.
func (s *SignalStore) Find(ctx context.Context, filter domain.SignalFilter) ([]domain.ComputedSignal, error) {
	query := `SELECT id, signal_type, value, ticker, ts, outcome FROM computed_signals`
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		conds = append(conds, "signal_type = ANY("+arg(types)+")")
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
		return nil, fmt.Errorf("postgres: find signals: %w", err)
	}
	defer rows.Close()

	var signals []domain.ComputedSignal
	for rows.Next() {
		var sig domain.ComputedSignal
		var sigType string
		if err := rows.Scan(&sig.ID, &sigType, &sig.Value, &sig.Ticker, &sig.Timestamp, &sig.Outcome); err != nil {
			return nil, fmt.Errorf("postgres: scan signal: %w", err)
		}
		sig.Type = domain.SignalType(sigType)
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: signal rows: %w", err)
	}
	return signals, nil
}
