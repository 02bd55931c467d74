package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fedlens/fedlens/internal/domain"
)

// alertStream is the Redis stream alerts are appended to, trimmed to an
// approximate maximum length via XADD MAXLEN ~.
const (
	alertStream         = "alerts"
	alertStreamMaxLen   = 10000
	alertChannel        = "alerts:live"
	alertChannelPerKind = "alerts:live:"
)

// AlertBus implements domain.AlertBus using a Redis stream for durable,
// ordered delivery plus Pub/Sub for live consumers.
type AlertBus struct {
	rdb *redis.Client
}

// NewAlertBus creates an AlertBus backed by the given Client.
func NewAlertBus(c *Client) *AlertBus {
	return &AlertBus{rdb: c.Underlying()}
}

// Publish appends an alert to the durable stream and fans it out to the live
// Pub/Sub channel, plus a per-kind channel for filtered subscribers.
func (ab *AlertBus) Publish(ctx context.Context, alert domain.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("redis: marshal alert: %w", err)
	}

	pipe := ab.rdb.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: alertStream,
		MaxLen: alertStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"kind":    string(alert.Kind),
			"payload": payload,
		},
	})
	pipe.Publish(ctx, alertChannel, payload)
	pipe.Publish(ctx, alertChannelPerKind+string(alert.Kind), payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish alert: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.AlertBus = (*AlertBus)(nil)
