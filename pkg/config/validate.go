package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/httputil"
)

// Upper bounds that follow from the storage layer: one ingest batch is a
// single multi-row INSERT with three bound parameters per line, and SQLite
// caps a statement at 32766 parameters.
const (
	maxIngestBatch  = 10000
	maxDownloadCap  = 10000
	maxPurgeBatch   = 1000000
	maxIntervalSpan = 7 * 24 * time.Hour
)

// ValidationError represents a single validation error with context.
type ValidationError struct {
	Path    string // e.g., "retention.purge_batch_size"
	Message string // e.g., "must be > 0; got 0"
	Hint    string // e.g., "recommended: 10000"
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate performs comprehensive validation of the entire config.
// It aggregates all errors and returns them, allowing the caller to print all issues at once.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateAuth()...)
	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateMarker()...)
	errs = append(errs, c.validateRetention()...)
	errs = append(errs, c.validateLimits()...)
	errs = append(errs, c.validateQueue()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error
	sc := c.Server

	if sc.ListenAddr == "" {
		errs = append(errs, ValidationError{
			Path:    "server.listen_addr",
			Message: "must not be empty",
			Hint:    "expected format: [host]:port",
		})
	} else if _, _, err := net.SplitHostPort(sc.ListenAddr); err != nil {
		errs = append(errs, ValidationError{
			Path:    "server.listen_addr",
			Message: err.Error(),
			Hint:    "expected format: [host]:port",
		})
	}

	if sc.ReadTimeout < 0 {
		errs = append(errs, ValidationError{
			Path:    "server.read_timeout",
			Message: fmt.Sprintf("must be >= 0; got %v", sc.ReadTimeout),
		})
	}
	if sc.WriteTimeout < 0 {
		errs = append(errs, ValidationError{
			Path:    "server.write_timeout",
			Message: fmt.Sprintf("must be >= 0; got %v", sc.WriteTimeout),
		})
	}
	if sc.RequestTimeout <= 0 {
		errs = append(errs, ValidationError{
			Path:    "server.request_timeout",
			Message: fmt.Sprintf("must be > 0; got %v", sc.RequestTimeout),
			Hint:    "recommended: 30s",
		})
	}
	if sc.MaxBodyBytes <= 0 {
		errs = append(errs, ValidationError{
			Path:    "server.max_body_bytes",
			Message: fmt.Sprintf("must be > 0; got %d", sc.MaxBodyBytes),
		})
	}

	return errs
}

func (c *Config) validateAuth() []error {
	var errs []error
	keys := []struct {
		path  string
		value string
	}{
		{"auth.probe_api_key", c.Auth.ProbeAPIKey},
		{"auth.log_collector_api_key", c.Auth.LogCollectorAPIKey},
		{"auth.cli_api_key", c.Auth.CLIAPIKey},
	}

	for _, k := range keys {
		if strings.TrimSpace(k.value) == "" {
			errs = append(errs, ValidationError{
				Path:    k.path,
				Message: "must not be empty",
				Hint:    "set it in the config file or via " + EnvPrefix + strings.ToUpper(strings.TrimPrefix(k.path, "auth.")),
			})
		}
	}

	return errs
}

func (c *Config) validateDatabase() []error {
	var errs []error
	dc := c.Database

	switch dc.Driver {
	case "sqlite":
		if dc.DSN == "" {
			errs = append(errs, ValidationError{
				Path:    "database.dsn",
				Message: "must not be empty",
				Hint:    "path to the SQLite database file",
			})
		}
	case "rqlite":
		u, err := url.Parse(dc.DSN)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Path:    "database.dsn",
				Message: fmt.Sprintf("invalid rqlite URL %q", dc.DSN),
				Hint:    "expected format: http://host:port",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Path:    "database.driver",
			Message: fmt.Sprintf("invalid value %q", dc.Driver),
			Hint:    "allowed values: sqlite, rqlite",
		})
	}

	if dc.MaxOpenConns < 0 {
		errs = append(errs, ValidationError{
			Path:    "database.max_open_conns",
			Message: fmt.Sprintf("must be >= 0; got %d", dc.MaxOpenConns),
		})
	}

	return errs
}

func (c *Config) validateMarker() []error {
	var errs []error
	mc := c.Marker

	switch mc.Backend {
	case "sql":
	case "olric":
		if len(mc.OlricServers) == 0 {
			errs = append(errs, ValidationError{
				Path:    "marker.olric_servers",
				Message: "must not be empty when backend is olric",
			})
		}
		for i, s := range mc.OlricServers {
			if _, _, err := net.SplitHostPort(s); err != nil {
				errs = append(errs, ValidationError{
					Path:    fmt.Sprintf("marker.olric_servers[%d]", i),
					Message: err.Error(),
					Hint:    "expected format: host:port",
				})
			}
		}
		if !httputil.ValidateDMapName(mc.OlricDMap) {
			errs = append(errs, ValidationError{
				Path:    "marker.olric_dmap",
				Message: fmt.Sprintf("invalid dmap name %q", mc.OlricDMap),
				Hint:    "letters, digits, '.', '_' and '-' only",
			})
		}
		if mc.OlricTimeout <= 0 {
			errs = append(errs, ValidationError{
				Path:    "marker.olric_timeout",
				Message: fmt.Sprintf("must be > 0; got %v", mc.OlricTimeout),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Path:    "marker.backend",
			Message: fmt.Sprintf("invalid value %q", mc.Backend),
			Hint:    "allowed values: sql, olric",
		})
	}

	return errs
}

func (c *Config) validateRetention() []error {
	var errs []error
	rc := c.Retention

	if rc.CleanupInterval <= 0 {
		errs = append(errs, ValidationError{
			Path:    "retention.cleanup_interval",
			Message: fmt.Sprintf("must be > 0; got %v", rc.CleanupInterval),
			Hint:    "recommended: 5m",
		})
	}
	if rc.DeleteTimeout <= 0 {
		errs = append(errs, ValidationError{
			Path:    "retention.delete_timeout",
			Message: fmt.Sprintf("must be > 0; got %v", rc.DeleteTimeout),
			Hint:    "recommended: 30m",
		})
	}
	if rc.PurgeBatchSize < 1 || rc.PurgeBatchSize > maxPurgeBatch {
		errs = append(errs, ValidationError{
			Path:    "retention.purge_batch_size",
			Message: fmt.Sprintf("must be between 1 and %d; got %d", maxPurgeBatch, rc.PurgeBatchSize),
		})
	}
	if rc.MaxPurgeRounds < 1 {
		errs = append(errs, ValidationError{
			Path:    "retention.max_purge_rounds",
			Message: fmt.Sprintf("must be >= 1; got %d", rc.MaxPurgeRounds),
		})
	}

	sc := c.Schedule
	if sc.DefaultUploadInterval < time.Second || sc.DefaultUploadInterval > maxIntervalSpan {
		errs = append(errs, ValidationError{
			Path:    "schedule.default_upload_interval",
			Message: fmt.Sprintf("must be between 1s and %v; got %v", maxIntervalSpan, sc.DefaultUploadInterval),
			Hint:    "recommended: 300s",
		})
	}
	if sc.SlackFactor < 1 {
		errs = append(errs, ValidationError{
			Path:    "schedule.slack_factor",
			Message: fmt.Sprintf("must be >= 1; got %v", sc.SlackFactor),
			Hint:    "recommended: 1.1",
		})
	}

	// The cutoff must trail each node's upload interval, otherwise logs can
	// be purged before any collector was allowed to see them.
	if rc.DeleteTimeout > 0 && sc.DefaultUploadInterval > 0 && rc.DeleteTimeout <= sc.DefaultUploadInterval {
		errs = append(errs, ValidationError{
			Path:    "retention.delete_timeout",
			Message: fmt.Sprintf("must exceed schedule.default_upload_interval (%v); got %v", sc.DefaultUploadInterval, rc.DeleteTimeout),
		})
	}

	return errs
}

func (c *Config) validateLimits() []error {
	var errs []error

	if c.Download.MaxItems < 1 || c.Download.MaxItems > maxDownloadCap {
		errs = append(errs, ValidationError{
			Path:    "download.max_items",
			Message: fmt.Sprintf("must be between 1 and %d; got %d", maxDownloadCap, c.Download.MaxItems),
		})
	}
	if c.Ingest.MaxBatch < 1 || c.Ingest.MaxBatch > maxIngestBatch {
		errs = append(errs, ValidationError{
			Path:    "ingest.max_batch",
			Message: fmt.Sprintf("must be between 1 and %d; got %d", maxIngestBatch, c.Ingest.MaxBatch),
		})
	}

	rl := c.RateLimit
	if rl.Enabled {
		if rl.RequestsPerMinute <= 0 {
			errs = append(errs, ValidationError{
				Path:    "rate_limit.requests_per_minute",
				Message: fmt.Sprintf("must be > 0 when enabled; got %d", rl.RequestsPerMinute),
			})
		}
		if rl.Burst <= 0 {
			errs = append(errs, ValidationError{
				Path:    "rate_limit.burst",
				Message: fmt.Sprintf("must be > 0 when enabled; got %d", rl.Burst),
			})
		}
	}

	return errs
}

func (c *Config) validateQueue() []error {
	var errs []error
	qc := c.Queue

	if qc.ClaimTimeout <= 0 {
		errs = append(errs, ValidationError{
			Path:    "queue.claim_timeout",
			Message: fmt.Sprintf("must be > 0; got %v", qc.ClaimTimeout),
			Hint:    "recommended: 1m",
		})
	}

	seen := make(map[string]bool)
	for i, name := range qc.ExtraCommands {
		path := fmt.Sprintf("queue.extra_commands[%d]", i)
		if !httputil.ValidateCommandName(name) {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("invalid command name %q", name),
				Hint:    "lowercase letters, digits and '_', starting with a letter",
			})
			continue
		}
		if seen[name] {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: "duplicate command name",
			})
		}
		seen[name] = true
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error
	lc := c.Logging

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[lc.Level] {
		errs = append(errs, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("invalid value %q", lc.Level),
			Hint:    "allowed values: trace, debug, info, warn, error",
		})
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[lc.Format] {
		errs = append(errs, ValidationError{
			Path:    "logging.format",
			Message: fmt.Sprintf("invalid value %q", lc.Format),
			Hint:    "allowed values: json, console",
		})
	}

	return errs
}
