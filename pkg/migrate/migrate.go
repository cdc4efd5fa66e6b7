// Package migrate applies numbered SQL schema migrations.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Latest targets the highest known migration.
const Latest = -1

// ErrUnknownVersion is returned when a target is neither 0 nor a known migration
var ErrUnknownVersion = errors.New("unknown migration version")

// Migration is one numbered schema change
type Migration struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
	Up      string `json:"-"`
	Down    string `json:"-"`
}

// Direction tells whether a step applies or reverts its migration
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Step is one migration run in one direction. After is the schema version
// recorded once the step commits.
type Step struct {
	Migration Migration
	Direction Direction
	After     int
}

func (s Step) query() string {
	if s.Direction == DirectionUp {
		return s.Migration.Up
	}
	return s.Migration.Down
}

// Status summarizes the schema of a database
type Status struct {
	Current int         `json:"current"`
	Latest  int         `json:"latest"`
	Pending []Migration `json:"pending"`
}

// UpToDate reports whether every known migration has been applied.
func (s Status) UpToDate() bool { return len(s.Pending) == 0 }

// Executor is satisfied by *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Source loads migrations and records which version a database is at
type Source interface {
	Migrations() ([]Migration, error)
	EnsureTable(ctx context.Context, db Executor) error
	Version(ctx context.Context, db Executor) (int, error)
	SetVersion(ctx context.Context, db Executor, version int) error
}

// Plan lists the steps moving a schema from current to target, in the
// order they must run. Down steps record the version of the migration
// below them, so gaps in numbering are kept.
func Plan(migrations []Migration, current, target int) ([]Step, error) {
	sorted := slices.Clone(migrations)
	slices.SortFunc(sorted, func(a, b Migration) int { return a.Version - b.Version })

	if target == Latest {
		target = 0
		if len(sorted) > 0 {
			target = sorted[len(sorted)-1].Version
		}
	}
	known := target == 0 || slices.ContainsFunc(sorted, func(m Migration) bool { return m.Version == target })
	if !known {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, target)
	}

	var steps []Step
	if target >= current {
		for _, m := range sorted {
			if m.Version > current && m.Version <= target {
				steps = append(steps, Step{Migration: m, Direction: DirectionUp, After: m.Version})
			}
		}
	} else {
		for i := len(sorted) - 1; i >= 0; i-- {
			m := sorted[i]
			if m.Version <= target || m.Version > current {
				continue
			}
			after := 0
			if i > 0 {
				after = sorted[i-1].Version
			}
			steps = append(steps, Step{Migration: m, Direction: DirectionDown, After: after})
		}
	}

	for _, s := range steps {
		if s.query() == "" {
			return nil, fmt.Errorf("migration %d has no %s SQL", s.Migration.Version, s.Direction)
		}
	}
	return steps, nil
}

// Migrator runs migrations from a Source against a database
type Migrator struct {
	db     *sql.DB
	source Source
	logger *zap.SugaredLogger
}

// NewMigrator creates a new migrator. A nil logger discards progress messages.
func NewMigrator(db *sql.DB, source Source, logger *zap.SugaredLogger) *Migrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Migrator{db: db, source: source, logger: logger}
}

// Up applies every pending migration
func (m *Migrator) Up(ctx context.Context) error {
	return m.To(ctx, Latest)
}

// Down reverts migrations until the schema is at target, which must be
// below the current version.
func (m *Migrator) Down(ctx context.Context, target int) error {
	current, err := m.Version(ctx)
	if err != nil {
		return err
	}
	if target < 0 || target >= current {
		return fmt.Errorf("target version %d must be below current version %d", target, current)
	}
	return m.To(ctx, target)
}

// To moves the schema up or down to target. Each step runs in its own
// transaction; a failing step leaves the schema at the previous one.
func (m *Migrator) To(ctx context.Context, target int) error {
	current, err := m.Version(ctx)
	if err != nil {
		return err
	}
	migrations, err := m.source.Migrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	steps, err := Plan(migrations, current, target)
	if err != nil {
		return err
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.apply(ctx, s); err != nil {
			return fmt.Errorf("migration %d %s: %w", s.Migration.Version, s.Direction, err)
		}
	}
	return nil
}

// Version returns the applied schema version, creating the tracking table
// when needed.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	if err := m.source.EnsureTable(ctx, m.db); err != nil {
		return 0, fmt.Errorf("failed to create migration table: %w", err)
	}
	v, err := m.source.Version(ctx, m.db)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return v, nil
}

// Status reports the applied version and the migrations still pending.
func (m *Migrator) Status(ctx context.Context) (Status, error) {
	current, err := m.Version(ctx)
	if err != nil {
		return Status{}, err
	}
	migrations, err := m.source.Migrations()
	if err != nil {
		return Status{}, fmt.Errorf("failed to load migrations: %w", err)
	}
	steps, err := Plan(migrations, current, Latest)
	if err != nil {
		return Status{}, err
	}

	st := Status{Current: current, Latest: current, Pending: []Migration{}}
	for _, s := range steps {
		st.Pending = append(st.Pending, s.Migration)
	}
	for _, mig := range migrations {
		st.Latest = max(st.Latest, mig.Version)
	}
	return st, nil
}

func (m *Migrator) apply(ctx context.Context, s Step) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.query()); err != nil {
		return err
	}
	if err := m.source.SetVersion(ctx, tx, s.After); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	m.logger.Infow("applied migration",
		"version", s.Migration.Version,
		"name", s.Migration.Name,
		"direction", string(s.Direction),
		"schema_version", s.After,
	)
	return nil
}
