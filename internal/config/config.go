package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"RFM Segmentation"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"rfmseg"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"SERVER_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}

	Analysis struct {
		ChurnThresholdDays int           `envconfig:"ANALYSIS_CHURN_THRESHOLD_DAYS" default:"90"`
		Workers            int           `envconfig:"ANALYSIS_WORKERS" default:"4"`
		CacheTTL           time.Duration `envconfig:"ANALYSIS_CACHE_TTL" default:"10m"`
	}

	Report struct {
		OutputDir    string `envconfig:"REPORT_OUTPUT_DIR" default:"excel"`
		WebhookURL   string `envconfig:"REPORT_WEBHOOK_URL"`
		WebhookToken string `envconfig:"REPORT_WEBHOOK_TOKEN"`
	}

	Auth struct {
		// JWTSecret enables HS256 bearer auth on the API when set.
		JWTSecret string `envconfig:"AUTH_JWT_SECRET"`
	}

	Log struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Format string `envconfig:"LOG_FORMAT" default:"text"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// LogLevel maps Log.Level to a slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}

	return level
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Analysis.ChurnThresholdDays <= 0 {
		return nil, fmt.Errorf("ANALYSIS_CHURN_THRESHOLD_DAYS must be positive, got %d", cfg.Analysis.ChurnThresholdDays)
	}

	return &cfg, nil
}
