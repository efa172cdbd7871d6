package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validConfig returns a default config with the required keys filled in
func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Auth = AuthConfig{
		ProbeAPIKey:        "probe",
		LogCollectorAPIKey: "collector",
		CLIAPIKey:          "cli",
	}
	return cfg
}

func TestDefaultConfigNeedsOnlyKeys(t *testing.T) {
	if errs := validConfig().Validate(); len(errs) != 0 {
		t.Fatalf("expected valid config, got %v", errs)
	}

	errs := DefaultConfig().Validate()
	if len(errs) != 3 {
		t.Fatalf("expected 3 missing-key errors, got %d: %v", len(errs), errs)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hub.yaml")
	content := `
auth:
  probe_api_key: p
  log_collector_api_key: c
  cli_api_key: o
retention:
  cleanup_interval: 1m
  delete_timeout: 2h
queue:
  extra_commands: [reboot]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Retention.CleanupInterval != time.Minute || cfg.Retention.DeleteTimeout != 2*time.Hour {
		t.Errorf("durations not decoded: %+v", cfg.Retention)
	}
	if cfg.Retention.PurgeBatchSize != 10000 {
		t.Errorf("default purge batch lost: %d", cfg.Retention.PurgeBatchSize)
	}
	if len(cfg.Queue.ExtraCommands) != 1 || cfg.Queue.ExtraCommands[0] != "reboot" {
		t.Errorf("extra commands = %v", cfg.Queue.ExtraCommands)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.yaml")
	if err := os.WriteFile(path, []byte("retention:\n  cleanup_intervall: 1m\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("expected defaults, got %q", cfg.Server.ListenAddr)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"LOGHUB_PROBE_API_KEY":       "from-env",
		"LOGHUB_DB_DRIVER":           "rqlite",
		"LOGHUB_DB_DSN":              "http://db:4001",
		"LOGHUB_OLRIC_SERVERS":       "a:3320, b:3320,",
		"LOGHUB_CLEANUP_INTERVAL":    "90s",
		"LOGHUB_SWEEP_ON_DOWNLOAD":   "off",
		"LOGHUB_PURGE_BATCH_SIZE":    "many",
		"LOGHUB_TRUST_PROXY_HEADERS": "yes",
	}
	cfg := validConfig()
	errs := cfg.ApplyEnv(func(k string) string { return env[k] })

	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "LOGHUB_PURGE_BATCH_SIZE") {
		t.Fatalf("expected one error for purge batch, got %v", errs)
	}
	if cfg.Auth.ProbeAPIKey != "from-env" {
		t.Errorf("probe key = %q", cfg.Auth.ProbeAPIKey)
	}
	if cfg.Database.Driver != "rqlite" || cfg.Database.DSN != "http://db:4001" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if len(cfg.Marker.OlricServers) != 2 || cfg.Marker.OlricServers[1] != "b:3320" {
		t.Errorf("olric servers = %v", cfg.Marker.OlricServers)
	}
	if cfg.Retention.CleanupInterval != 90*time.Second {
		t.Errorf("cleanup interval = %v", cfg.Retention.CleanupInterval)
	}
	if cfg.Retention.SweepOnDownload {
		t.Error("sweep_on_download should be disabled")
	}
	if !cfg.RateLimit.TrustProxyHeaders {
		t.Error("trust_proxy_headers should be enabled")
	}
	if DefaultConfig().RateLimit.TrustProxyHeaders {
		t.Error("trust_proxy_headers must default to false")
	}
	if cfg.Retention.PurgeBatchSize != 10000 {
		t.Errorf("bad env value must not change field, got %d", cfg.Retention.PurgeBatchSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantPath string
	}{
		{"bad listen addr", func(c *Config) { c.Server.ListenAddr = "8080" }, "server.listen_addr"},
		{"zero request timeout", func(c *Config) { c.Server.RequestTimeout = 0 }, "server.request_timeout"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver"},
		{"rqlite needs url", func(c *Config) { c.Database.Driver = "rqlite"; c.Database.DSN = "db:4001" }, "database.dsn"},
		{"empty sqlite dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"unknown marker", func(c *Config) { c.Marker.Backend = "redis" }, "marker.backend"},
		{"olric without servers", func(c *Config) { c.Marker.Backend = "olric"; c.Marker.OlricServers = nil }, "marker.olric_servers"},
		{"olric bad server", func(c *Config) { c.Marker.Backend = "olric"; c.Marker.OlricServers = []string{"nohost"} }, "marker.olric_servers[0]"},
		{"olric bad dmap", func(c *Config) { c.Marker.Backend = "olric"; c.Marker.OlricDMap = "a b" }, "marker.olric_dmap"},
		{"zero cleanup interval", func(c *Config) { c.Retention.CleanupInterval = 0 }, "retention.cleanup_interval"},
		{"zero purge batch", func(c *Config) { c.Retention.PurgeBatchSize = 0 }, "retention.purge_batch_size"},
		{"zero rounds", func(c *Config) { c.Retention.MaxPurgeRounds = 0 }, "retention.max_purge_rounds"},
		{"delete before upload", func(c *Config) { c.Retention.DeleteTimeout = time.Minute }, "retention.delete_timeout"},
		{"tiny default interval", func(c *Config) { c.Schedule.DefaultUploadInterval = time.Millisecond }, "schedule.default_upload_interval"},
		{"slack below one", func(c *Config) { c.Schedule.SlackFactor = 0.5 }, "schedule.slack_factor"},
		{"download cap too large", func(c *Config) { c.Download.MaxItems = 10001 }, "download.max_items"},
		{"ingest batch too large", func(c *Config) { c.Ingest.MaxBatch = 20000 }, "ingest.max_batch"},
		{"rate limit zero", func(c *Config) { c.RateLimit.Enabled = true; c.RateLimit.Burst = 0 }, "rate_limit.burst"},
		{"claim timeout", func(c *Config) { c.Queue.ClaimTimeout = 0 }, "queue.claim_timeout"},
		{"bad extra command", func(c *Config) { c.Queue.ExtraCommands = []string{"Reboot"} }, "queue.extra_commands[0]"},
		{"duplicate extra command", func(c *Config) { c.Queue.ExtraCommands = []string{"a", "a"} }, "queue.extra_commands[1]"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatalf("expected error at %s", tt.wantPath)
			}
			found := false
			for _, err := range errs {
				if ve, ok := err.(ValidationError); ok && ve.Path == tt.wantPath {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error at %s, got %v", tt.wantPath, errs)
			}
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	err := ValidationError{Path: "a.b", Message: "bad", Hint: "try c"}
	if err.Error() != "a.b: bad; try c" {
		t.Errorf("unexpected %q", err.Error())
	}
}

func TestDefaultPath(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "hub.yaml")
	path, exists, err := DefaultPath(abs)
	if err != nil || path != abs || exists {
		t.Fatalf("DefaultPath(%q) = %q, %v, %v", abs, path, exists, err)
	}
	if err := os.WriteFile(abs, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, exists, _ := DefaultPath(abs); !exists {
		t.Error("expected existing file to be reported")
	}
}
