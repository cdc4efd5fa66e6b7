package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/khlaifiabilel/dem4water/pkg/migrate"
)

const (
	migrationTable = "catalog_migrations"
	timeLayout     = "2006-01-02T15:04:05.000000000Z07:00"
)

// MigrationSource returns the embedded schema migrations for backend.
func MigrationSource(backend string) *migrate.FSSource {
	return migrate.NewFSSource(migrations, "migrations/"+backend, migrationTable, migrate.Dialect(backend))
}

// SQLiteStore keeps the catalog in a SQLite file
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// OpenSQLite opens (and creates if needed) the catalog database at path.
func OpenSQLite(ctx context.Context, path string, logger *zap.SugaredLogger) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite catalog: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite catalog: %w", err)
	}

	if err := migrate.NewMigrator(db, MigrationSource("sqlite"), logger).Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate SQLite catalog: %w", err)
	}

	logger.Debugf("SQLite catalog ready at %s", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Schema reports the applied catalog migrations
func (s *SQLiteStore) Schema(ctx context.Context) (migrate.Status, error) {
	return migrate.NewMigrator(s.db, MigrationSource("sqlite"), s.logger).Status(ctx)
}

// SaveRun stores run and its windows in one transaction
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, windows []WindowRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, dam_id, dam_name, dam_elevation, mode, found, shortage,
			z0, s0, v0, alpha, beta, mae, window_start, window_end, szi_file, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.DamID, run.DamName, run.DamElevation, run.Mode, run.Found, run.Shortage,
		run.Z0, run.S0, run.V0, run.Alpha, run.Beta, run.MAE, run.WindowStart, run.WindowEnd,
		run.SZIFile, run.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO windows (run_id, idx, start_index, end_index, median_z, median_s,
			alpha, beta, slope, intercept, mae)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare window insert: %w", err)
	}
	defer stmt.Close()

	for _, w := range windows {
		if _, err := stmt.ExecContext(ctx, run.ID, w.Idx, w.StartIndex, w.EndIndex, w.MedianZ, w.MedianS,
			w.Alpha, w.Beta, w.Slope, w.Intercept, w.MAE); err != nil {
			return fmt.Errorf("failed to insert window %d: %w", w.Idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, dam_id, dam_name, dam_elevation, mode, found, shortage,
	z0, s0, v0, alpha, beta, mae, window_start, window_end, szi_file, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var created string
	if err := row.Scan(&r.ID, &r.DamID, &r.DamName, &r.DamElevation, &r.Mode, &r.Found, &r.Shortage,
		&r.Z0, &r.S0, &r.V0, &r.Alpha, &r.Beta, &r.MAE, &r.WindowStart, &r.WindowEnd,
		&r.SZIFile, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
	}
	r.CreatedAt = t
	return &r, nil
}

// ListRuns returns the most recent runs first
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return r, nil
}

// LatestForDam returns the most recent run of a dam
func (s *SQLiteStore) LatestForDam(ctx context.Context, damID string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE dam_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, damID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run for dam %s: %w", damID, err)
	}
	return r, nil
}

// Windows returns the windows of a run ordered by index
func (s *SQLiteStore) Windows(ctx context.Context, runID string) ([]WindowRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, start_index, end_index, median_z, median_s, alpha, beta, slope, intercept, mae
		FROM windows WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}
	defer rows.Close()

	var out []WindowRow
	for rows.Next() {
		var w WindowRow
		if err := rows.Scan(&w.RunID, &w.Idx, &w.StartIndex, &w.EndIndex, &w.MedianZ, &w.MedianS,
			&w.Alpha, &w.Beta, &w.Slope, &w.Intercept, &w.MAE); err != nil {
			return nil, fmt.Errorf("failed to scan window: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
