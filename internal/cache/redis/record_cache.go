package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fedlens/fedlens/internal/domain"
)

const recordTTL = 5 * time.Minute

// RecordCache implements domain.RecordCache with one JSON value per venue.
//
// Key schema:
//
//	records:{venue} - JSON-encoded []MarketRecord from the latest fetch
type RecordCache struct {
	rdb *redis.Client
}

// NewRecordCache creates a RecordCache backed by the given Client.
func NewRecordCache(c *Client) *RecordCache {
	return &RecordCache{rdb: c.Underlying()}
}

func recordsKey(venue domain.Venue) string { return "records:" + string(venue) }

// SetRecords stores the latest record batch for a venue with a 5-minute TTL.
func (rc *RecordCache) SetRecords(ctx context.Context, venue domain.Venue, records []domain.MarketRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("redis: marshal records for %s: %w", venue, err)
	}
	if err := rc.rdb.Set(ctx, recordsKey(venue), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("redis: set records for %s: %w", venue, err)
	}
	return nil
}

// GetRecords retrieves the latest record batch for a venue.
// It returns domain.ErrNotFound when no batch is cached.
func (rc *RecordCache) GetRecords(ctx context.Context, venue domain.Venue) ([]domain.MarketRecord, error) {
	data, err := rc.rdb.Get(ctx, recordsKey(venue)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get records for %s: %w", venue, err)
	}

	var records []domain.MarketRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("redis: unmarshal records for %s: %w", venue, err)
	}
	return records, nil
}

// Compile-time interface check.
var _ domain.RecordCache = (*RecordCache)(nil)
