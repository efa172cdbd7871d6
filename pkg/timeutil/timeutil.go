// Package timeutil converts between time.Time and the stored timestamp text.
//
// Every timestamp the hub persists uses Layout: UTC, nanosecond precision,
// fixed width. Comparing two stored values as strings therefore orders them
// chronologically, which the SQL range and purge predicates rely on.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the fixed-width UTC layout of stored timestamps.
const Layout = "2006-01-02T15:04:05.000000000Z"

// Format renders t in Layout.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Parse accepts RFC 3339 with any offset (fractional seconds optional) and
// returns the instant in UTC. Years outside 0000-9999 are rejected because
// they would break the fixed width of Layout.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q is not RFC 3339: %w", s, err)
	}
	t = t.UTC()
	if y := t.Year(); y < 0 || y > 9999 {
		return time.Time{}, fmt.Errorf("timestamp %q is out of range", s)
	}
	return t, nil
}

// Normalize parses s and re-renders it in Layout.
func Normalize(s string) (string, error) {
	t, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Format(t), nil
}
