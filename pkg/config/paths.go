package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigDir returns the path to the loghub config directory (~/.loghub).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".loghub"), nil
}

// DefaultPath returns the path to the config file for the given file name.
// It checks ./<name> first, then ~/.loghub/<name>. If name is already an
// absolute path, it returns it as-is. The second return value reports whether
// the file exists.
func DefaultPath(name string) (string, bool, error) {
	if filepath.IsAbs(name) {
		_, err := os.Stat(name)
		return name, err == nil, nil
	}

	if _, err := os.Stat(name); err == nil {
		return name, true, nil
	}

	dir, err := ConfigDir()
	if err != nil {
		return "", false, err
	}

	homePath := filepath.Join(dir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, true, nil
	}

	// Return the home path even if it doesn't exist yet so errors can name it
	return homePath, false, nil
}
