package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FEDLENS_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FEDLENS_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// Venue endpoints
	setStr(&cfg.Polymarket.GammaHost, "FEDLENS_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Kalshi.BaseURL, "FEDLENS_KALSHI_BASE_URL")

	// Postgres
	setBool(&cfg.Postgres.Enabled, "FEDLENS_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "FEDLENS_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "FEDLENS_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FEDLENS_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FEDLENS_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FEDLENS_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FEDLENS_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FEDLENS_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FEDLENS_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FEDLENS_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FEDLENS_POSTGRES_RUN_MIGRATIONS")

	// Redis
	setBool(&cfg.Redis.Enabled, "FEDLENS_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "FEDLENS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FEDLENS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FEDLENS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FEDLENS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FEDLENS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FEDLENS_REDIS_TLS_ENABLED")

	// S3
	setBool(&cfg.S3.Enabled, "FEDLENS_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "FEDLENS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FEDLENS_S3_REGION")
	setStr(&cfg.S3.Bucket, "FEDLENS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FEDLENS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FEDLENS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FEDLENS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FEDLENS_S3_FORCE_PATH_STYLE")

	// Matcher
	setFloat64(&cfg.Matcher.QuestionWeight, "FEDLENS_MATCHER_QUESTION_WEIGHT")
	setFloat64(&cfg.Matcher.OutcomeWeight, "FEDLENS_MATCHER_OUTCOME_WEIGHT")
	setFloat64(&cfg.Matcher.TemporalWeight, "FEDLENS_MATCHER_TEMPORAL_WEIGHT")
	setFloat64(&cfg.Matcher.MinSimilarity, "FEDLENS_MATCHER_MIN_SIMILARITY")

	// Classifier
	setFloat64(&cfg.Classifier.MinLiquidityScore, "FEDLENS_CLASSIFIER_MIN_LIQUIDITY_SCORE")
	setFloat64(&cfg.Classifier.DivergenceFloor, "FEDLENS_CLASSIFIER_DIVERGENCE_FLOOR")
	setFloat64(&cfg.Classifier.DataQualityThreshold, "FEDLENS_CLASSIFIER_DATA_QUALITY_THRESHOLD")

	// Aggregation
	setStringSlice(&cfg.Aggregation.MarketTypes, "FEDLENS_AGGREGATION_MARKET_TYPES")
	setDuration(&cfg.Aggregation.Interval, "FEDLENS_AGGREGATION_INTERVAL")
	setFloat64(&cfg.Aggregation.MinLiquidityScore, "FEDLENS_AGGREGATION_MIN_LIQUIDITY_SCORE")
	setBool(&cfg.Aggregation.ArchiveReports, "FEDLENS_AGGREGATION_ARCHIVE_REPORTS")

	// Server
	setBool(&cfg.Server.Enabled, "FEDLENS_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "FEDLENS_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FEDLENS_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "FEDLENS_SERVER_API_KEY")

	// Notify
	setStr(&cfg.Notify.TelegramToken, "FEDLENS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FEDLENS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FEDLENS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Kinds, "FEDLENS_NOTIFY_KINDS")

	// Top-level
	setStr(&cfg.Mode, "FEDLENS_MODE")
	setStr(&cfg.LogLevel, "FEDLENS_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
