package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
worker:
  count: 3
  queue_depth: 128
  source_concurrency: 8
  topic: discovery-runs
commoncrawl:
  crawl_id: CC-MAIN-2025-26
  max_files_default: 2
  max_records_default: 500
dork:
  results_per_query: 20
  max_queries_default: 10
  timeout_seconds: 45
  search_rps: 1.5
headless:
  enabled: true
  max_parallel: 2
  nav_timeout_seconds: 30
storage:
  backend: gcs
  gcs_bucket: reports-bucket
  prefix: archives
sink:
  backend: rest
  rest_base_url: https://db.example.com
  rest_api_key: sink-key
  table: discovered
logging:
  development: false
standard_runs:
  solar-scan:
    keywords: ["solar", "battery"]
    channel: wet
    min_score: 1.5
    max_files: 3
    filter_known: true
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.Worker.Count != 3 || cfg.Worker.Topic != "discovery-runs" {
		t.Fatalf("expected worker overrides to apply: %+v", cfg.Worker)
	}
	if cfg.CommonCrawl.CrawlID != "CC-MAIN-2025-26" {
		t.Fatalf("expected crawl id override, got %s", cfg.CommonCrawl.CrawlID)
	}
	if cfg.Storage.Backend != "gcs" || cfg.Storage.GCSBucket != "reports-bucket" {
		t.Fatalf("expected gcs storage config: %+v", cfg.Storage)
	}
	run, ok := cfg.StandardRuns["solar-scan"]
	if !ok || len(run.Keywords) != 2 || run.Keywords[0] != "solar" {
		t.Fatalf("expected standard run to be loaded: %+v", cfg.StandardRuns)
	}
	if run.MinScore != 1.5 || run.MaxFiles != 3 || !run.FilterKnown {
		t.Fatalf("expected run parameters to be preserved: %+v", run)
	}
	if got := cfg.DorkTimeout(); got != 45*time.Second {
		t.Fatalf("expected dork timeout 45s, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Sink.Backend != "fs" || cfg.Sink.FilePath == "" {
		t.Fatalf("expected fs sink defaults, got %+v", cfg.Sink)
	}
	if cfg.Storage.Backend != "local" {
		t.Fatalf("expected local storage default, got %s", cfg.Storage.Backend)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:      ServerConfig{Port: 8080},
		Worker:      WorkerConfig{Count: 1, QueueDepth: 16},
		CommonCrawl: CommonCrawlConfig{CrawlID: "CC-MAIN-2025-33"},
		Storage:     StorageConfig{Backend: "memory"},
		Sink:        SinkConfig{Backend: "memory"},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "invalid worker count",
			cfg: func() Config {
				c := base
				c.Worker.Count = 0
				return c
			}(),
			want: "worker.count",
		},
		{
			name: "missing crawl id",
			cfg: func() Config {
				c := base
				c.CommonCrawl.CrawlID = ""
				return c
			}(),
			want: "commoncrawl.crawl_id",
		},
		{
			name: "headless missing max parallel",
			cfg: func() Config {
				c := base
				c.Headless.Enabled = true
				c.Headless.MaxParallel = 0
				return c
			}(),
			want: "headless.max_parallel",
		},
		{
			name: "auth missing api key",
			cfg: func() Config {
				c := base
				c.Auth.Enabled = true
				return c
			}(),
			want: "auth.api_key",
		},
		{
			name: "gcs without bucket",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "gcs"
				return c
			}(),
			want: "storage.gcs_bucket",
		},
		{
			name: "unknown sink backend",
			cfg: func() Config {
				c := base
				c.Sink.Backend = "dynamo"
				return c
			}(),
			want: "sink.backend",
		},
		{
			name: "rest sink missing credentials",
			cfg: func() Config {
				c := base
				c.Sink.Backend = "rest"
				return c
			}(),
			want: "sink.rest_base_url",
		},
		{
			name: "pubsub missing topic",
			cfg: func() Config {
				c := base
				c.PubSub.Enabled = true
				c.PubSub.ProjectID = "proj"
				return c
			}(),
			want: "pubsub.project_id and pubsub.topic_name",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
