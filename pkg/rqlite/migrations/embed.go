// Package migrations holds the hub schema as versioned SQL files.
package migrations

import "embed"

// FS contains every *.sql migration, applied in numeric prefix order.
//
//go:embed *.sql
var FS embed.FS
