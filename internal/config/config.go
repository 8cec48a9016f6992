// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"domainscout/internal/extract"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server       ServerConfig                     `mapstructure:"server"`
	Auth         AuthConfig                       `mapstructure:"auth"`
	Worker       WorkerConfig                     `mapstructure:"worker"`
	CommonCrawl  CommonCrawlConfig                `mapstructure:"commoncrawl"`
	Dork         DorkConfig                       `mapstructure:"dork"`
	Headless     HeadlessConfig                   `mapstructure:"headless"`
	Storage      StorageConfig                    `mapstructure:"storage"`
	Sink         SinkConfig                       `mapstructure:"sink"`
	PubSub       PubSubConfig                     `mapstructure:"pubsub"`
	Logging      LoggingConfig                    `mapstructure:"logging"`
	StandardRuns map[string]extract.RunParameters `mapstructure:"standard_runs"`
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

// WorkerConfig governs queue depth and run execution parallelism.
type WorkerConfig struct {
	Count             int    `mapstructure:"count"`
	QueueDepth        int    `mapstructure:"queue_depth"`
	SourceConcurrency int    `mapstructure:"source_concurrency"`
	Topic             string `mapstructure:"topic"`
}

// CommonCrawlConfig selects the crawl snapshot and scan limits.
type CommonCrawlConfig struct {
	CrawlID           string `mapstructure:"crawl_id"`
	BaseURL           string `mapstructure:"base_url"`
	MaxFilesDefault   int    `mapstructure:"max_files_default"`
	MaxRecordsDefault int    `mapstructure:"max_records_default"`
}

// DorkConfig governs search-engine discovery behavior.
type DorkConfig struct {
	SearchBaseURL     string  `mapstructure:"search_base_url"`
	ResultsPerQuery   int     `mapstructure:"results_per_query"`
	MaxQueriesDefault int     `mapstructure:"max_queries_default"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	SearchRPS         float64 `mapstructure:"search_rps"`
}

// HeadlessConfig configures the headless rendering fallback.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// StorageConfig sets the blob backend for report archives.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	BaseDir   string `mapstructure:"base_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// SinkConfig controls where discovered domains are upserted.
type SinkConfig struct {
	Backend        string `mapstructure:"backend"`
	DSN            string `mapstructure:"dsn"`
	Table          string `mapstructure:"table"`
	RESTBaseURL    string `mapstructure:"rest_base_url"`
	RESTAPIKey     string `mapstructure:"rest_api_key"`
	FilePath       string `mapstructure:"file_path"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PubSubConfig holds metadata for run completion notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOMAINSCOUT")
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
	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.queue_depth", 64)
	v.SetDefault("worker.source_concurrency", 4)
	v.SetDefault("worker.topic", "domain-runs")
	v.SetDefault("commoncrawl.crawl_id", "CC-MAIN-2025-33")
	v.SetDefault("commoncrawl.max_files_default", 1)
	v.SetDefault("commoncrawl.max_records_default", 1000)
	v.SetDefault("dork.results_per_query", 10)
	v.SetDefault("dork.max_queries_default", 25)
	v.SetDefault("dork.timeout_seconds", 15)
	v.SetDefault("dork.search_rps", 0.5)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.base_dir", "./data/reports")
	v.SetDefault("storage.prefix", "runs")
	v.SetDefault("sink.backend", "fs")
	v.SetDefault("sink.table", "domains")
	v.SetDefault("sink.file_path", "./data/domains.json")
	v.SetDefault("sink.timeout_seconds", 30)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Worker.Count <= 0 {
		return fmt.Errorf("worker.count must be > 0")
	}
	if c.Worker.QueueDepth <= 0 {
		return fmt.Errorf("worker.queue_depth must be > 0")
	}
	if c.CommonCrawl.CrawlID == "" {
		return fmt.Errorf("commoncrawl.crawl_id must be set")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Storage.Backend {
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when backend is gcs")
		}
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set when backend is local")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.backend must be one of gcs, local, memory")
	}
	switch c.Sink.Backend {
	case "postgres":
		if c.Sink.DSN == "" {
			return fmt.Errorf("sink.dsn must be set when backend is postgres")
		}
	case "rest":
		if c.Sink.RESTBaseURL == "" || c.Sink.RESTAPIKey == "" {
			return fmt.Errorf("sink.rest_base_url and sink.rest_api_key must be set when backend is rest")
		}
	case "fs":
		if c.Sink.FilePath == "" {
			return fmt.Errorf("sink.file_path must be set when backend is fs")
		}
	case "memory":
	default:
		return fmt.Errorf("sink.backend must be one of postgres, rest, fs, memory")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	return nil
}

// DorkTimeout converts the dork timeout config into a duration.
func (c Config) DorkTimeout() time.Duration {
	return time.Duration(c.Dork.TimeoutSeconds) * time.Second
}

// SinkTimeout converts the sink timeout config into a duration.
func (c Config) SinkTimeout() time.Duration {
	return time.Duration(c.Sink.TimeoutSeconds) * time.Second
}
