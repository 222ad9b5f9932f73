package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/rfmseg/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 90, cfg.Analysis.ChurnThresholdDays)
	assert.Equal(t, 10*time.Minute, cfg.Analysis.CacheTTL)
	assert.Equal(t, "postgres://postgres:@localhost:5432/rfmseg?sslmode=disable", cfg.ConnectionString())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ANALYSIS_CHURN_THRESHOLD_DAYS", "30")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Analysis.ChurnThresholdDays)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoad_RejectsNonPositiveChurnThreshold(t *testing.T) {
	t.Setenv("ANALYSIS_CHURN_THRESHOLD_DAYS", "0")

	_, err := config.Load()
	assert.Error(t, err)
}
