// Package config defines the top-level configuration for the reconciliation
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by FEDLENS_* environment
// variables.
type Config struct {
	Polymarket  PolymarketConfig  `toml:"polymarket"`
	Kalshi      KalshiConfig      `toml:"kalshi"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Matcher     MatcherConfig     `toml:"matcher"`
	Classifier  ClassifierConfig  `toml:"classifier"`
	Aggregation AggregationConfig `toml:"aggregation"`
	Server      ServerConfig      `toml:"server"`
	Notify      NotifyConfig      `toml:"notify"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// PolymarketConfig holds the Polymarket gamma API endpoint.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
}

// KalshiConfig holds the Kalshi trade API endpoint.
type KalshiConfig struct {
	BaseURL string `toml:"base_url"`
}

// PostgresConfig holds PostgreSQL connection parameters. Storage is optional;
// when disabled, signal persistence and backtesting operations are
// unavailable but live aggregation still works.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Optional; when disabled the
// record cache and alert bus are skipped.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for report and
// snapshot archival. Optional.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// MatcherConfig holds the cross-venue similarity weights and threshold.
type MatcherConfig struct {
	QuestionWeight float64 `toml:"question_weight"`
	OutcomeWeight  float64 `toml:"outcome_weight"`
	TemporalWeight float64 `toml:"temporal_weight"`
	MinSimilarity  float64 `toml:"min_similarity"`
}

// ClassifierConfig holds the divergence classification thresholds.
type ClassifierConfig struct {
	MinLiquidityScore    float64 `toml:"min_liquidity_score"`
	DivergenceFloor      float64 `toml:"divergence_floor"`
	DataQualityThreshold float64 `toml:"data_quality_threshold"`
}

// AggregationConfig controls the periodic aggregation loop.
type AggregationConfig struct {
	MarketTypes       []string `toml:"market_types"`
	Interval          duration `toml:"interval"`
	MinLiquidityScore float64  `toml:"min_liquidity_score"`
	ArchiveReports    bool     `toml:"archive_reports"`
}

// ServerConfig holds the HTTP API server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds operator notification channels. Kinds filters which
// alert classes are forwarded; empty means all.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Kinds             []string `toml:"kinds"`
}

// duration wraps time.Duration to support TOML string decoding ("5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for the TOML decoder.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration, suitable as the base for TOML
// and environment overrides.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "fedlens",
			User:          "fedlens",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled: false,
			Region:  "us-east-1",
		},
		Matcher: MatcherConfig{
			QuestionWeight: 0.5,
			OutcomeWeight:  0.3,
			TemporalWeight: 0.2,
			MinSimilarity:  0.7,
		},
		Classifier: ClassifierConfig{
			MinLiquidityScore:    0.3,
			DivergenceFloor:      0.05,
			DataQualityThreshold: 0.20,
		},
		Aggregation: AggregationConfig{
			MarketTypes:       []string{"rate_policy", "macro_data_release", "recession"},
			Interval:          duration{5 * time.Minute},
			MinLiquidityScore: 0.0,
			ArchiveReports:    false,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Kinds: []string{"opportunity", "data_quality_issue"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"aggregate": true,
	"watch":     true,
	"backtest":  true,
	"server":    true,
	"full":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validMarketTypes enumerates the market categories the venue clients can
// fetch.
var validMarketTypes = map[string]bool{
	"rate_policy":        true,
	"macro_data_release": true,
	"recession":          true,
	"geopolitical":       true,
	"regulatory":         true,
	"election":           true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: aggregate, watch, backtest, server, full)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Modes that score or replay history need storage.
	if (c.Mode == "backtest" || c.Mode == "watch") && !c.Postgres.Enabled {
		errs = append(errs, "postgres: must be enabled for mode "+c.Mode)
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Matcher weights must be positive and the threshold a probability.
	if c.Matcher.QuestionWeight < 0 || c.Matcher.OutcomeWeight < 0 || c.Matcher.TemporalWeight < 0 {
		errs = append(errs, "matcher: weights must be >= 0")
	}
	if c.Matcher.QuestionWeight+c.Matcher.OutcomeWeight+c.Matcher.TemporalWeight <= 0 {
		errs = append(errs, "matcher: at least one weight must be > 0")
	}
	if c.Matcher.MinSimilarity < 0 || c.Matcher.MinSimilarity > 1 {
		errs = append(errs, fmt.Sprintf("matcher: min_similarity must be in [0,1], got %g", c.Matcher.MinSimilarity))
	}

	// Classifier
	if c.Classifier.MinLiquidityScore < 0 || c.Classifier.MinLiquidityScore > 1 {
		errs = append(errs, fmt.Sprintf("classifier: min_liquidity_score must be in [0,1], got %g", c.Classifier.MinLiquidityScore))
	}
	if c.Classifier.DivergenceFloor < 0 || c.Classifier.DivergenceFloor > 1 {
		errs = append(errs, fmt.Sprintf("classifier: divergence_floor must be in [0,1], got %g", c.Classifier.DivergenceFloor))
	}
	if c.Classifier.DataQualityThreshold <= c.Classifier.DivergenceFloor {
		errs = append(errs, "classifier: data_quality_threshold must exceed divergence_floor")
	}

	// Aggregation
	if len(c.Aggregation.MarketTypes) == 0 {
		errs = append(errs, "aggregation: market_types must not be empty")
	}
	for _, mt := range c.Aggregation.MarketTypes {
		if !validMarketTypes[mt] {
			errs = append(errs, fmt.Sprintf("aggregation: unknown market type %q", mt))
		}
	}
	if c.Aggregation.Interval.Duration < 30*time.Second {
		errs = append(errs, "aggregation: interval must be at least 30s")
	}
	if c.Aggregation.ArchiveReports && !c.S3.Enabled {
		errs = append(errs, "aggregation: archive_reports requires s3 to be enabled")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}
	if c.Mode == "server" && !c.Server.Enabled {
		errs = append(errs, "server: must be enabled for mode server")
	}

	// Notify — telegram fields must be set together.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
