// Package config loads the application configuration from layered sources:
// built-in defaults, an optional YAML file, then environment variables. The
// merged result is validated before use.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment names the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	Test        Environment = "test"
)

// Config is the full application configuration.
type Config struct {
	Environment Environment `yaml:"environment" validate:"required,oneof=development production test"`

	Server       ServerConfig       `yaml:"server"`
	Storage      StorageConfig      `yaml:"storage"`
	Analyzer     AnalyzerConfig     `yaml:"analyzer"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Ranker       RankerConfig       `yaml:"ranker"`
	Timing       TimingConfig       `yaml:"timing"`
	Learner      LearnerConfig      `yaml:"learner"`
	Logging      LoggingConfig      `yaml:"logging"`

	// LoadedFrom records which sources contributed, for startup logging.
	LoadedFrom []string `yaml:"-"`
}

// ServerConfig tunes the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects and tunes the persistence backend.
type StorageConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite memory"`
	Path   string `yaml:"path"`
}

// AnalyzerConfig tunes similarity analysis.
type AnalyzerConfig struct {
	MinThreshold float64 `yaml:"min_threshold" validate:"gte=0,lte=1"`
	MaxPerItem   int     `yaml:"max_per_item" validate:"gte=0"`
	UseCategory  bool    `yaml:"use_category"`
	UseConcepts  bool    `yaml:"use_concepts"`
	UseTags      bool    `yaml:"use_tags"`
	UseText      bool    `yaml:"use_text"`
}

// OrchestratorConfig tunes graph maintenance scheduling.
type OrchestratorConfig struct {
	DebounceDelay   time.Duration `yaml:"debounce_delay"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	BatchSize       int           `yaml:"batch_size" validate:"gte=1"`
	RebuildPageSize int           `yaml:"rebuild_page_size" validate:"gte=1"`
	RelationshipTTL time.Duration `yaml:"relationship_ttl"`
}

// RankerConfig tunes suggestion ranking.
type RankerConfig struct {
	MaxAgeDays       int           `yaml:"max_age_days" validate:"gte=0"`
	RecentViewWindow time.Duration `yaml:"recent_view_window"`
	CategoryCap      int           `yaml:"category_cap" validate:"gte=0"`
	AdaptStep        float64       `yaml:"adapt_step" validate:"gte=0,lte=0.2"`
}

// TimingConfig tunes suggestion delivery constraints.
type TimingConfig struct {
	QuietStartHour int           `yaml:"quiet_start_hour" validate:"gte=0,lte=23"`
	QuietEndHour   int           `yaml:"quiet_end_hour" validate:"gte=0,lte=23"`
	MaxPerHour     int           `yaml:"max_per_hour" validate:"gte=0"`
	MinGap         time.Duration `yaml:"min_gap"`
}

// LearnerConfig tunes preference learning.
type LearnerConfig struct {
	HistoryLimit       int `yaml:"history_limit" validate:"gte=1"`
	DailyCap           int `yaml:"daily_cap" validate:"gte=0"`
	BadTimingThreshold int `yaml:"bad_timing_threshold" validate:"gte=1"`
}

// LoggingConfig tunes the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "data/resurface.db",
		},
		Analyzer: AnalyzerConfig{
			MinThreshold: 0.3,
			MaxPerItem:   10,
			UseCategory:  true,
			UseConcepts:  true,
			UseTags:      true,
			UseText:      true,
		},
		Orchestrator: OrchestratorConfig{
			DebounceDelay:   5 * time.Second,
			SweepInterval:   30 * time.Second,
			BatchSize:       10,
			RebuildPageSize: 50,
			RelationshipTTL: 0,
		},
		Ranker: RankerConfig{
			MaxAgeDays:       180,
			RecentViewWindow: 24 * time.Hour,
			CategoryCap:      2,
			AdaptStep:        0.01,
		},
		Timing: TimingConfig{
			QuietStartHour: 22,
			QuietEndHour:   8,
			MaxPerHour:     3,
			MinGap:         15 * time.Minute,
		},
		Learner: LearnerConfig{
			HistoryLimit:       1000,
			DailyCap:           20,
			BadTimingThreshold: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var validate = validator.New()

// Load builds the configuration from defaults, the optional YAML file at
// path (skipped when empty or missing), and environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.LoadedFrom = []string{"defaults"}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
			cfg.LoadedFrom = append(cfg.LoadedFrom, path)
		case os.IsNotExist(err):
			// Optional file; defaults and env carry the configuration.
		default:
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnv overrides configuration from RESURFACE_* environment variables.
func applyEnv(cfg *Config) {
	setString := func(key string, target *string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
	setInt := func(key string, target *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*target = n
			}
		}
	}
	setDuration := func(key string, target *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*target = d
			}
		}
	}

	if v := os.Getenv("RESURFACE_ENV"); v != "" {
		cfg.Environment = Environment(strings.ToLower(v))
	}
	setString("RESURFACE_SERVER_HOST", &cfg.Server.Host)
	setInt("RESURFACE_SERVER_PORT", &cfg.Server.Port)
	setString("RESURFACE_STORAGE_DRIVER", &cfg.Storage.Driver)
	setString("RESURFACE_STORAGE_PATH", &cfg.Storage.Path)
	setDuration("RESURFACE_DEBOUNCE_DELAY", &cfg.Orchestrator.DebounceDelay)
	setDuration("RESURFACE_SWEEP_INTERVAL", &cfg.Orchestrator.SweepInterval)
	setDuration("RESURFACE_RELATIONSHIP_TTL", &cfg.Orchestrator.RelationshipTTL)
	setInt("RESURFACE_QUIET_START_HOUR", &cfg.Timing.QuietStartHour)
	setInt("RESURFACE_QUIET_END_HOUR", &cfg.Timing.QuietEndHour)
	setString("RESURFACE_LOG_LEVEL", &cfg.Logging.Level)
	setString("RESURFACE_LOG_FORMAT", &cfg.Logging.Format)
}
