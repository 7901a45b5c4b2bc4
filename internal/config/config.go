package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/statement-flow/internal/classification"
	"github.com/Veraticus/statement-flow/internal/common"
	"github.com/Veraticus/statement-flow/internal/ingest"
	"github.com/Veraticus/statement-flow/internal/pattern"
)

// EnvPrefix is the prefix of environment variables read by viper.
const EnvPrefix = "FLOW"

// Config is the resolved application configuration.
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
	Ingest   IngestConfig
	Classify ClassifyConfig
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// IngestConfig bounds uploads.
type IngestConfig struct {
	UserID           string
	MaxParallelFiles int
	MaxFileBytes     int64
}

// ClassifyConfig tunes rule matching and review.
type ClassifyConfig struct {
	MatchMode            pattern.MatchMode
	AutoConfirmThreshold int
	AutoConfirm          bool
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("ingest.user_id", "default")
	v.SetDefault("ingest.max_parallel_files", 4)
	v.SetDefault("ingest.max_file_bytes", ingest.DefaultMaxFileBytes)
	v.SetDefault("classify.auto_confirm", true)
	v.SetDefault("classify.auto_confirm_threshold", classification.DefaultAutoConfirmThreshold)
	v.SetDefault("classify.match_mode", pattern.Substring.String())
}

// Load reads the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom resolves a Config from v, applying defaults for unset keys.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	mode, ok := pattern.ParseMatchMode(strings.ToLower(v.GetString("classify.match_mode")))
	if !ok {
		return nil, fmt.Errorf("%w: classify.match_mode %q", common.ErrInvalidConfig, v.GetString("classify.match_mode"))
	}

	cfg := &Config{
		Database: DatabaseConfig{Path: ExpandPath(v.GetString("database.path"))},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Ingest: IngestConfig{
			UserID:           strings.TrimSpace(v.GetString("ingest.user_id")),
			MaxParallelFiles: v.GetInt("ingest.max_parallel_files"),
			MaxFileBytes:     v.GetInt64("ingest.max_file_bytes"),
		},
		Classify: ClassifyConfig{
			AutoConfirm:          v.GetBool("classify.auto_confirm"),
			AutoConfirmThreshold: v.GetInt("classify.auto_confirm_threshold"),
			MatchMode:            mode,
		},
	}

	if cfg.Database.Path == "" {
		return nil, fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if cfg.Ingest.UserID == "" {
		return nil, fmt.Errorf("%w: ingest.user_id", common.ErrMissingConfig)
	}
	if cfg.Ingest.MaxParallelFiles < 1 {
		return nil, fmt.Errorf("%w: ingest.max_parallel_files must be at least 1", common.ErrInvalidConfig)
	}
	if t := cfg.Classify.AutoConfirmThreshold; t < 1 || t > 100 {
		return nil, fmt.Errorf("%w: classify.auto_confirm_threshold %d is outside 1-100", common.ErrInvalidConfig, t)
	}
	return cfg, nil
}

// IngestOptions converts the configuration into pipeline options.
func (c *Config) IngestOptions() ingest.Options {
	return ingest.Options{
		Classify: classification.Settings{
			AutoConfirm: c.Classify.AutoConfirm,
			Threshold:   c.Classify.AutoConfirmThreshold,
		},
		MatchMode:    c.Classify.MatchMode,
		MaxFileBytes: c.Ingest.MaxFileBytes,
	}
}
