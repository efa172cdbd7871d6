package main

import (
	"errors"
	"fmt"

	"github.com/DeBrosOfficial/loghub/pkg/config"
	"github.com/spf13/cobra"
)

// DefaultConfigName is looked up in ./ and ~/.loghub/ when --config is unset.
const DefaultConfigName = "loghub.yaml"

func registerFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.String("config", "", "Path to config YAML file (env LOGHUB_CONFIG)")
	fs.String("addr", "", "HTTP listen address (e.g., :8080)")
	fs.String("db-driver", "", "Database driver: sqlite or rqlite")
	fs.String("db-dsn", "", "SQLite file path or rqlite URL")
	fs.String("log-level", "", "Log level: trace, debug, info, warn, error")
	fs.String("log-format", "", "Log format: console or json")
}

// loadConfig resolves the hub configuration.
// Priority: flags > env > YAML file > defaults.
func loadConfig(cmd *cobra.Command, getenv func(string) string) (*config.Config, string, error) {
	fs := cmd.Flags()
	path, _ := fs.GetString("config")
	if path == "" {
		path = getenv(config.EnvPrefix + "CONFIG")
	}

	if path == "" {
		p, exists, err := config.DefaultPath(DefaultConfigName)
		if err != nil {
			return nil, "", err
		}
		if exists {
			path = p
		}
	}

	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}

	if errs := cfg.ApplyEnv(getenv); len(errs) > 0 {
		return nil, "", fmt.Errorf("invalid environment: %w", errors.Join(errs...))
	}

	for name, dst := range map[string]*string{
		"addr":       &cfg.Server.ListenAddr,
		"db-driver":  &cfg.Database.Driver,
		"db-dsn":     &cfg.Database.DSN,
		"log-level":  &cfg.Logging.Level,
		"log-format": &cfg.Logging.Format,
	} {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, "", fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, path, nil
}
