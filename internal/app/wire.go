package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/fedlens/fedlens/internal/blob/s3"
	"github.com/fedlens/fedlens/internal/cache/redis"
	"github.com/fedlens/fedlens/internal/config"
	"github.com/fedlens/fedlens/internal/domain"
	"github.com/fedlens/fedlens/internal/notify"
	"github.com/fedlens/fedlens/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function. Optional backends that are disabled in config stay nil.
type Dependencies struct {
	// Stores
	SnapshotStore   domain.SnapshotStore
	SignalStore     domain.SignalStore
	ResolutionStore domain.ResolutionStore
	PriceStore      domain.InstrumentPriceStore

	// Cache and bus
	RecordCache domain.RecordCache
	AlertBus    domain.AlertBus

	// Blob storage
	BlobWriter *s3blob.Writer

	// Notifications
	Notifier *notify.Notifier

	// Connectivity probes for the health endpoint.
	PostgresPing func(ctx context.Context) error
	RedisPing    func(ctx context.Context) error
}

// Wire constructs all enabled dependency implementations from the given
// configuration and returns them with a cleanup function to be called on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// PostgreSQL
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.SnapshotStore = postgres.NewSnapshotStore(pool)
		deps.SignalStore = postgres.NewSignalStore(pool)
		deps.ResolutionStore = postgres.NewResolutionStore(pool)
		deps.PriceStore = postgres.NewPriceStore(pool)
		deps.PostgresPing = pool.Ping
	}

	// Redis
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RecordCache = redis.NewRecordCache(redisClient)
		deps.AlertBus = redis.NewAlertBus(redisClient)
		deps.RedisPing = redisClient.Ping
	}

	// S3 blob storage
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// Notifications
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	kinds := make([]domain.AlertKind, 0, len(cfg.Notify.Kinds))
	for _, k := range cfg.Notify.Kinds {
		kinds = append(kinds, domain.AlertKind(k))
	}
	deps.Notifier = notify.NewNotifier(senders, kinds, logger)

	return deps, cleanup, nil
}
