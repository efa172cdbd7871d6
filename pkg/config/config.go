package config

import (
	"fmt"
	"os"
	"time"
)

// Config represents the main configuration for a hub process
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Marker    MarkerConfig    `yaml:"marker"`
	Retention RetentionConfig `yaml:"retention"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Download  DownloadConfig  `yaml:"download"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Queue     QueueConfig     `yaml:"queue"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP listener configuration
type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`     // e.g. ":8080"
	ReadTimeout    time.Duration `yaml:"read_timeout"`    // 0 disables
	WriteTimeout   time.Duration `yaml:"write_timeout"`   // 0 disables
	RequestTimeout time.Duration `yaml:"request_timeout"` // per-request handler deadline
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`  // cap on request bodies
}

// AuthConfig holds one shared secret per caller role
type AuthConfig struct {
	ProbeAPIKey        string `yaml:"probe_api_key"`         // POST /update
	LogCollectorAPIKey string `yaml:"log_collector_api_key"` // GET /download
	CLIAPIKey          string `yaml:"cli_api_key"`           // POST /command, GET /v1/status
}

// DatabaseConfig selects the SQL backend
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`         // sqlite or rqlite
	DSN          string `yaml:"dsn"`            // file path for sqlite, http(s) URL for rqlite
	MaxOpenConns int    `yaml:"max_open_conns"` // 0 uses the driver default
}

// MarkerConfig selects where the last-sweep marker is kept
type MarkerConfig struct {
	Backend      string        `yaml:"backend"`       // sql or olric
	OlricServers []string      `yaml:"olric_servers"` // host:port list
	OlricDMap    string        `yaml:"olric_dmap"`    // distributed map name
	OlricTimeout time.Duration `yaml:"olric_timeout"` // per-operation timeout
}

// RetentionConfig controls the sweeper.
// CleanupInterval is how often a sweep may run; DeleteTimeout is how old a
// row must be before it is purged. The two are independent.
type RetentionConfig struct {
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	DeleteTimeout   time.Duration `yaml:"delete_timeout"`
	PurgeBatchSize  int           `yaml:"purge_batch_size"`
	MaxPurgeRounds  int           `yaml:"max_purge_rounds"`
	SweepOnDownload bool          `yaml:"sweep_on_download"`
}

// ScheduleConfig contains upload-interval defaults
type ScheduleConfig struct {
	DefaultUploadInterval time.Duration `yaml:"default_upload_interval"`
	SlackFactor           float64       `yaml:"slack_factor"`
}

// DownloadConfig bounds download responses
type DownloadConfig struct {
	MaxItems int `yaml:"max_items"`
}

// IngestConfig bounds ingest batches
type IngestConfig struct {
	MaxBatch int `yaml:"max_batch"`
}

// QueueConfig controls the command queue
type QueueConfig struct {
	ClaimTimeout  time.Duration `yaml:"claim_timeout"`  // a drain claim older than this is taken over
	ExtraCommands []string      `yaml:"extra_commands"` // accepted in addition to the built-in names
}

// RateLimitConfig controls the optional per-IP limiter
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
	// TrustProxyHeaders keys clients by X-Forwarded-For; only behind a proxy
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`       // trace, debug, info, warn, error
	Format     string `yaml:"format"`      // json, console
	OutputFile string `yaml:"output_file"` // Empty for stdout
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:     ":8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			RequestTimeout: 30 * time.Second,
			MaxBodyBytes:   16 << 20,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "./data/loghub.db",
		},
		Marker: MarkerConfig{
			Backend:      "sql",
			OlricServers: []string{"localhost:3320"},
			OlricDMap:    "loghub-markers",
			OlricTimeout: 5 * time.Second,
		},
		Retention: RetentionConfig{
			CleanupInterval: 5 * time.Minute,
			DeleteTimeout:   30 * time.Minute,
			PurgeBatchSize:  10000,
			MaxPurgeRounds:  1,
			SweepOnDownload: true,
		},
		Schedule: ScheduleConfig{
			DefaultUploadInterval: 300 * time.Second,
			SlackFactor:           1.1,
		},
		Download: DownloadConfig{
			MaxItems: 10000,
		},
		Ingest: IngestConfig{
			MaxBatch: 10000,
		},
		Queue: QueueConfig{
			ClaimTimeout: time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerMinute: 600,
			Burst:             60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFile reads a YAML config on top of the defaults.
// Keys absent from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	if err := DecodeStrict(f, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
