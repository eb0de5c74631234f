// Package config loads application configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/veerayerva/warehouse-returns/internal/evaluate"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Archive   ArchiveConfig   `yaml:"archive" mapstructure:"archive"`
	PieceInfo PieceInfoConfig `yaml:"pieceinfo" mapstructure:"pieceinfo"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the content-store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnalysisConfig holds document-analysis service settings.
type AnalysisConfig struct {
	Endpoint            string  `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey              string  `yaml:"api_key" mapstructure:"api_key"`
	APIVersion          string  `yaml:"api_version" mapstructure:"api_version"`
	ModelID             string  `yaml:"model_id" mapstructure:"model_id"`
	TimeoutSecs         int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitPerSec     float64 `yaml:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
	FieldName           string  `yaml:"field_name" mapstructure:"field_name"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
}

// ArchiveConfig holds low-confidence archival settings.
type ArchiveConfig struct {
	Container      string `yaml:"container" mapstructure:"container"`
	Scope          string `yaml:"scope" mapstructure:"scope"`
	MaxAttempts    int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffSecs    int    `yaml:"backoff_secs" mapstructure:"backoff_secs"`
	MaxBackoffSecs int    `yaml:"max_backoff_secs" mapstructure:"max_backoff_secs"`
}

// PieceInfoConfig holds integration-hub settings for piece lookups.
type PieceInfoConfig struct {
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	SubscriptionKey string `yaml:"subscription_key" mapstructure:"subscription_key"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int `yaml:"port" mapstructure:"port"`
	MaxUploadMB     int `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	ShutdownTimeout int `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RETURNS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.shutdown_timeout_secs", 15)
	v.SetDefault("analysis.api_version", "2024-11-30")
	v.SetDefault("analysis.model_id", "prebuilt-read")
	v.SetDefault("analysis.timeout_secs", 60)
	v.SetDefault("analysis.field_name", "Serial")
	v.SetDefault("analysis.confidence_threshold", 0.85)
	v.SetDefault("archive.container", "document-analysis")
	v.SetDefault("archive.scope", "pending-review")
	v.SetDefault("archive.max_attempts", 3)
	v.SetDefault("archive.backoff_secs", 1)
	v.SetDefault("archive.max_backoff_secs", 30)
	v.SetDefault("pieceinfo.timeout_secs", 30)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configuration the pipeline could not run with. The
// confidence threshold is checked here once so the evaluator never sees an
// out-of-range value.
func (c *Config) Validate() error {
	if err := evaluate.ValidateThreshold(c.Analysis.ConfidenceThreshold); err != nil {
		return eris.Wrap(err, "config: analysis.confidence_threshold")
	}
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Archive.MaxAttempts < 1 {
		return eris.Errorf("config: archive.max_attempts must be at least 1, got %d", c.Archive.MaxAttempts)
	}
	return nil
}

// AnalysisTimeout returns the analysis call timeout as a duration.
func (c *AnalysisConfig) AnalysisTimeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
