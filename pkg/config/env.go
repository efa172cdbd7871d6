package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "LOGHUB_"

// ApplyEnv overrides fields from environment variables. getenv is usually
// os.Getenv; tests pass a map lookup. Unparseable values are reported and
// leave the field unchanged.
func (c *Config) ApplyEnv(getenv func(string) string) []error {
	var errs []error
	get := func(name string) (string, bool) {
		v := strings.TrimSpace(getenv(EnvPrefix + name))
		return v, v != ""
	}
	setString := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, envError(name, v, "expected a duration such as 5m"))
				return
			}
			*dst = d
		}
	}
	setInt := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, envError(name, v, "expected an integer"))
				return
			}
			*dst = n
		}
	}
	setBool := func(name string, dst *bool) {
		if v, ok := get(name); ok {
			switch strings.ToLower(v) {
			case "1", "true", "t", "yes", "y", "on":
				*dst = true
			case "0", "false", "f", "no", "n", "off":
				*dst = false
			default:
				errs = append(errs, envError(name, v, "expected a boolean"))
			}
		}
	}

	setString("LISTEN_ADDR", &c.Server.ListenAddr)

	setString("PROBE_API_KEY", &c.Auth.ProbeAPIKey)
	setString("LOG_COLLECTOR_API_KEY", &c.Auth.LogCollectorAPIKey)
	setString("CLI_API_KEY", &c.Auth.CLIAPIKey)

	setString("DB_DRIVER", &c.Database.Driver)
	setString("DB_DSN", &c.Database.DSN)

	setString("MARKER_BACKEND", &c.Marker.Backend)
	if v, ok := get("OLRIC_SERVERS"); ok {
		c.Marker.OlricServers = splitList(v)
	}

	setDuration("CLEANUP_INTERVAL", &c.Retention.CleanupInterval)
	setDuration("DELETE_TIMEOUT", &c.Retention.DeleteTimeout)
	setInt("PURGE_BATCH_SIZE", &c.Retention.PurgeBatchSize)
	setBool("SWEEP_ON_DOWNLOAD", &c.Retention.SweepOnDownload)

	setDuration("DEFAULT_UPLOAD_INTERVAL", &c.Schedule.DefaultUploadInterval)
	setDuration("CLAIM_TIMEOUT", &c.Queue.ClaimTimeout)

	setBool("RATE_LIMIT_ENABLED", &c.RateLimit.Enabled)
	setBool("TRUST_PROXY_HEADERS", &c.RateLimit.TrustProxyHeaders)

	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)

	return errs
}

func envError(name, value, hint string) error {
	return ValidationError{
		Path:    "env." + EnvPrefix + name,
		Message: fmt.Sprintf("invalid value %q", value),
		Hint:    hint,
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
