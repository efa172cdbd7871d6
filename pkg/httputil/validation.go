package httputil

import (
	"regexp"
	"strings"
)

// ValidateDMapName checks if a distributed map name is valid.
// Valid dmap names must:
// - Not be empty after trimming
// - Only contain alphanumeric characters, hyphens, underscores, and dots
// - Be between 1 and 128 characters
var dmapRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

func ValidateDMapName(dmap string) bool {
	dmap = strings.TrimSpace(dmap)
	if dmap == "" {
		return false
	}
	return dmapRegex.MatchString(dmap)
}

// ValidateCommandName checks a command name: lowercase letters, digits and
// underscores, starting with a letter, at most 64 characters.
var commandRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

func ValidateCommandName(name string) bool {
	return commandRegex.MatchString(name)
}
