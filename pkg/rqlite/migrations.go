package rqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"github.com/DeBrosOfficial/loghub/pkg/rqlite/migrations"
	"go.uber.org/zap"
)

// Migrate applies the hub schema bundled in the binary.
func Migrate(ctx context.Context, db *sql.DB, logger *logging.ColoredLogger) error {
	return ApplyEmbeddedMigrations(ctx, db, migrations.FS, logger)
}

// ApplyEmbeddedMigrations applies *.sql files from fsys ordered by numeric
// prefix, skipping versions already recorded in schema_migrations(version).
func ApplyEmbeddedMigrations(ctx context.Context, db *sql.DB, fsys fs.FS, logger *logging.ColoredLogger) error {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	if err := ensureMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	files, err := readMigrationFilesFromFS(fsys)
	if err != nil {
		return fmt.Errorf("read embedded migration files: %w", err)
	}
	if len(files) == 0 {
		logger.ComponentInfo(logging.ComponentDatabase, "No embedded migrations found")
		return nil
	}

	applied, err := loadAppliedVersions(ctx, db)
	if err != nil {
		return fmt.Errorf("load applied versions: %w", err)
	}

	for _, mf := range files {
		if applied[mf.Version] {
			logger.ComponentDebug(logging.ComponentDatabase, "Migration already applied; skipping",
				zap.Int("version", mf.Version), zap.String("name", mf.Name))
			continue
		}

		sqlBytes, err := fs.ReadFile(fsys, mf.Path)
		if err != nil {
			return fmt.Errorf("read embedded migration %s: %w", mf.Path, err)
		}

		logger.ComponentInfo(logging.ComponentDatabase, "Applying migration",
			zap.Int("version", mf.Version), zap.String("name", mf.Name))
		if err := applySQL(ctx, db, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", mf.Version, mf.Name, err)
		}

		if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO schema_migrations(version) VALUES (?)`, mf.Version); err != nil {
			return fmt.Errorf("record migration %d: %w", mf.Version, err)
		}
	}

	return nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version     INTEGER PRIMARY KEY,
	applied_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`)
	return err
}

type migrationFile struct {
	Version int
	Name    string
	Path    string
}

// readMigrationFilesFromFS lists versioned *.sql files at the root of fsys.
func readMigrationFilesFromFS(fsys fs.FS) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	var out []migrationFile
	seen := make(map[int]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".sql") {
			continue
		}
		ver, ok := parseVersionPrefix(name)
		if !ok {
			continue
		}
		if prev, dup := seen[ver]; dup {
			return nil, fmt.Errorf("duplicate migration version %d in %s and %s", ver, prev, name)
		}
		seen[ver] = name
		out = append(out, migrationFile{Version: ver, Name: name, Path: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// parseVersionPrefix reads the leading digits of names like "0001_initial.sql".
func parseVersionPrefix(name string) (int, bool) {
	end := strings.IndexFunc(name, func(r rune) bool { return r < '0' || r > '9' })
	if end == 0 {
		return 0, false
	}
	if end < 0 {
		end = len(name)
	}
	ver, err := strconv.Atoi(name[:end])
	if err != nil {
		return 0, false
	}
	return ver, true
}

func loadAppliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		if isNoSuchTable(err) {
			return map[int]bool{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[int(v)] = true
	}
	return applied, rows.Err()
}

// applySQL executes a script statement by statement. Explicit transaction
// control is dropped because rqlite rejects nested transactions.
func applySQL(ctx context.Context, db *sql.DB, script string) error {
	for _, stmt := range splitSQLStatements(script) {
		if isTxnControl(stmt) {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec stmt failed: %w (stmt: %s)", err, snippet(stmt))
		}
	}
	return nil
}

// isTxnControl returns true if the statement is a transaction control command.
func isTxnControl(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BEGIN", "BEGIN TRANSACTION", "COMMIT", "END", "ROLLBACK":
		return true
	default:
		return false
	}
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

// splitSQLStatements splits a script on semicolons outside quoted strings,
// dropping -- and /* */ comments. Doubled quotes inside strings are escapes.
func splitSQLStatements(in string) []string {
	var (
		out   []string
		b     strings.Builder
		quote rune // 0 outside a string, otherwise ' or "
	)
	flush := func() {
		if stmt := strings.TrimSpace(b.String()); stmt != "" {
			out = append(out, stmt)
		}
		b.Reset()
	}

	runes := []rune(in)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		if quote != 0 {
			b.WriteRune(ch)
			if ch == quote {
				if next == quote {
					b.WriteRune(next)
					i++
					continue
				}
				quote = 0
			}
			continue
		}

		switch {
		case ch == '-' && next == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			b.WriteRune('\n')
		case ch == '/' && next == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
			b.WriteRune(' ')
		case ch == '\'' || ch == '"':
			quote = ch
			b.WriteRune(ch)
		case ch == ';':
			flush()
		default:
			b.WriteRune(ch)
		}
	}
	flush()
	return out
}
