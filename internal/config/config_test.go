package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown mode "turbo"`)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.LogLevel = "verbose"
	cfg.Kalshi.BaseURL = ""
	cfg.Matcher.MinSimilarity = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown mode")
	require.Contains(t, err.Error(), "unknown log_level")
	require.Contains(t, err.Error(), "kalshi: base_url")
	require.Contains(t, err.Error(), "min_similarity")
}

func TestValidateClassifierThresholdOrdering(t *testing.T) {
	cfg := Defaults()
	cfg.Classifier.DivergenceFloor = 0.25
	cfg.Classifier.DataQualityThreshold = 0.20

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "data_quality_threshold must exceed divergence_floor")
}

func TestValidateBacktestModeRequiresPostgres(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "backtest"
	cfg.Postgres.Enabled = false

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "postgres: must be enabled for mode backtest")
}

func TestValidateArchiveRequiresS3(t *testing.T) {
	cfg := Defaults()
	cfg.Aggregation.ArchiveReports = true
	cfg.S3.Enabled = false

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "archive_reports requires s3")
}

func TestValidateIntervalFloor(t *testing.T) {
	cfg := Defaults()
	cfg.Aggregation.Interval = duration{10 * time.Second}

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "interval must be at least 30s")
}

func TestValidateTelegramFieldsSetTogether(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.TelegramToken = "tok"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "telegram_token and telegram_chat_id")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "aggregate"

[matcher]
min_similarity = 0.8

[aggregation]
interval = "2m"
market_types = ["rate_policy"]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "aggregate", cfg.Mode)
	require.InDelta(t, 0.8, cfg.Matcher.MinSimilarity, 1e-9)
	require.Equal(t, 2*time.Minute, cfg.Aggregation.Interval.Duration)
	require.Equal(t, []string{"rate_policy"}, cfg.Aggregation.MarketTypes)

	// Untouched sections keep their defaults.
	require.InDelta(t, 0.5, cfg.Matcher.QuestionWeight, 1e-9)
	require.Equal(t, "https://gamma-api.polymarket.com", cfg.Polymarket.GammaHost)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 8000
api_key = "from-file"
`), 0o600))

	t.Setenv("FEDLENS_SERVER_PORT", "9100")
	t.Setenv("FEDLENS_SERVER_API_KEY", "from-env")
	t.Setenv("FEDLENS_AGGREGATION_INTERVAL", "90s")
	t.Setenv("FEDLENS_NOTIFY_KINDS", "opportunity, resolution_risk")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Server.APIKey)
	require.Equal(t, 90*time.Second, cfg.Aggregation.Interval.Duration)
	require.Equal(t, []string{"opportunity", "resolution_risk"}, cfg.Notify.Kinds)
}

func TestEnvOverrideIgnoresMalformedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o600))

	t.Setenv("FEDLENS_SERVER_PORT", "not-a-number")
	t.Setenv("FEDLENS_MATCHER_MIN_SIMILARITY", "very")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8000, cfg.Server.Port)
	require.InDelta(t, 0.7, cfg.Matcher.MinSimilarity, 1e-9)
}
