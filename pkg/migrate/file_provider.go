package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Format: 001_create_runs.up.sql or 001_create_runs.down.sql
var migrationFileRegex = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

// Dialect selects the SQL flavour used for the version table
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) placeholder() string {
	if d == Postgres {
		return "$1"
	}
	return "?"
}

func (d Dialect) timestamp() string {
	if d == Postgres {
		return "TIMESTAMP"
	}
	return "DATETIME"
}

// FSSource reads migrations from a directory of an fs.FS, usually an
// embedded one, and tracks the applied version in a table of its own.
type FSSource struct {
	fsys    fs.FS
	dir     string
	table   string
	dialect Dialect
}

// NewFSSource creates a source reading dir inside fsys. An empty table
// defaults to schema_migrations and an empty dialect to SQLite.
func NewFSSource(fsys fs.FS, dir, table string, dialect Dialect) *FSSource {
	if table == "" {
		table = "schema_migrations"
	}
	if dialect == "" {
		dialect = SQLite
	}
	return &FSSource{fsys: fsys, dir: dir, table: table, dialect: dialect}
}

// Migrations parses the migration files, sorted by version. Files that do
// not follow the naming scheme are ignored.
func (s *FSSource) Migrations() ([]Migration, error) {
	byVersion := make(map[int]*Migration)

	err := fs.WalkDir(s.fsys, s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		parts := migrationFileRegex.FindStringSubmatch(d.Name())
		if parts == nil {
			return nil
		}

		version, err := strconv.Atoi(parts[1])
		if err != nil || version <= 0 {
			return fmt.Errorf("invalid version in %s", d.Name())
		}
		body, err := fs.ReadFile(s.fsys, path)
		if err != nil {
			return err
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: strings.ReplaceAll(parts[2], "_", " ")}
			byVersion[version] = mig
		}
		target := &mig.Up
		if parts[3] == string(DirectionDown) {
			target = &mig.Down
		}
		if *target != "" {
			return fmt.Errorf("duplicate %s migration for version %d", parts[3], version)
		}
		*target = string(body)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading migrations from %s: %w", s.dir, err)
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		migrations = append(migrations, *mig)
	}
	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })
	return migrations, nil
}

// EnsureTable creates the version table if it is missing
func (s *FSSource) EnsureTable(ctx context.Context, db Executor) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (version INTEGER PRIMARY KEY, applied_at %s DEFAULT CURRENT_TIMESTAMP)",
		s.table, s.dialect.timestamp()))
	return err
}

// Version returns the highest recorded version, 0 on an empty table
func (s *FSSource) Version(ctx context.Context, db Executor) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", s.table)).Scan(&v)
	return v, err
}

// SetVersion makes version the highest recorded one. Rows above it are
// removed, so rolling back to 0 empties the table.
func (s *FSSource) SetVersion(ctx context.Context, db Executor, version int) error {
	ph := s.dialect.placeholder()
	if _, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE version > %s", s.table, ph), version); err != nil {
		return fmt.Errorf("failed to set version: %w", err)
	}
	if version == 0 {
		return nil
	}

	insert := fmt.Sprintf("INSERT INTO %s (version) VALUES (%s) ON CONFLICT (version) DO NOTHING", s.table, ph)
	if _, err := db.ExecContext(ctx, insert, version); err != nil {
		return fmt.Errorf("failed to set version: %w", err)
	}
	return nil
}
