// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/socialpulse/content-engine/internal/logging"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Apify    ApifyConfig    `mapstructure:"apify"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// PipelineConfig governs dispatcher and task pipeline behavior.
type PipelineConfig struct {
	Concurrency             int `mapstructure:"concurrency"`
	QueueDepth              int `mapstructure:"queue_depth"`
	MaxURLsPerTask          int `mapstructure:"max_urls_per_task"`
	SelectionTarget         int `mapstructure:"selection_target"`
	ScrapeTimeoutSeconds    int `mapstructure:"scrape_timeout_seconds"`
	NormalizeTimeoutSeconds int `mapstructure:"normalize_timeout_seconds"`
}

// ApifyConfig holds the actor platform credentials and limits.
type ApifyConfig struct {
	Token             string  `mapstructure:"token"`
	BaseURL           string  `mapstructure:"base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// StorageConfig selects and configures the artifact blob store.
type StorageConfig struct {
	// Backend is one of "memory", "local" or "gcs".
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls access to the relational database. An empty DSN keeps
// tasks in memory.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for completion-event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features and the file sink.
type LoggingConfig struct {
	Development bool               `mapstructure:"development"`
	File        logging.FileConfig `mapstructure:"file"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONTENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.queue_depth", 64)
	v.SetDefault("pipeline.max_urls_per_task", 10)
	v.SetDefault("pipeline.selection_target", 9)
	v.SetDefault("pipeline.scrape_timeout_seconds", 300)
	v.SetDefault("pipeline.normalize_timeout_seconds", 120)
	v.SetDefault("apify.token", "")
	v.SetDefault("apify.base_url", "")
	v.SetDefault("apify.requests_per_second", 2)
	v.SetDefault("apify.burst", 4)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.prefix", "tasks")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.local_dir", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "tasks")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be > 0")
	}
	if c.Pipeline.MaxURLsPerTask <= 0 {
		return fmt.Errorf("pipeline.max_urls_per_task must be > 0")
	}
	if c.Pipeline.SelectionTarget <= 0 {
		return fmt.Errorf("pipeline.selection_target must be > 0")
	}
	if c.Pipeline.ScrapeTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline.scrape_timeout_seconds must be > 0")
	}
	switch c.Storage.Backend {
	case "memory":
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set for the local backend")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, local, gcs")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// ScrapeTimeout returns the per-platform scrape budget.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Pipeline.ScrapeTimeoutSeconds) * time.Second
}

// NormalizeTimeout returns the normalization stage budget.
func (c Config) NormalizeTimeout() time.Duration {
	return time.Duration(c.Pipeline.NormalizeTimeoutSeconds) * time.Second
}
