package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/khlaifiabilel/dem4water/pkg/migrate"
)

// GormStore keeps the catalog in PostgreSQL through gorm
type GormStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// OpenPostgres connects to PostgreSQL with the standard gorm configuration
// and applies the catalog migrations.
func OpenPostgres(ctx context.Context, connectionString string, zl *zap.SugaredLogger) (*GormStore, error) {
	dbLogger := logger.New(
		zap.NewStdLog(zl.Desugar()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,
		},
	)

	zl.Info("connecting to PostgreSQL catalog...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("unable to create a PostgreSQL connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unable to get PostgreSQL handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL catalog: %w", err)
	}
	if err := migrate.NewMigrator(sqlDB, MigrationSource("postgres"), zl).Up(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate PostgreSQL catalog: %w", err)
	}
	zl.Info("PostgreSQL catalog connection successful")

	return &GormStore{db: db, logger: zl}, nil
}

// Schema reports the applied catalog migrations
func (g *GormStore) Schema(ctx context.Context) (migrate.Status, error) {
	sqlDB, err := g.db.DB()
	if err != nil {
		return migrate.Status{}, err
	}
	return migrate.NewMigrator(sqlDB, MigrationSource("postgres"), g.logger).Status(ctx)
}

// SaveRun stores run and its windows in one transaction
func (g *GormStore) SaveRun(ctx context.Context, run *Run, windows []WindowRow) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		if len(windows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(windows, 500).Error; err != nil {
			return fmt.Errorf("failed to insert windows: %w", err)
		}
		return nil
	})
}

// ListRuns returns the most recent runs first
func (g *GormStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	var runs []Run
	if err := g.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run by ID
func (g *GormStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &run, nil
}

// LatestForDam returns the most recent run of a dam
func (g *GormStore) LatestForDam(ctx context.Context, damID string) (*Run, error) {
	var run Run
	err := g.db.WithContext(ctx).Where("dam_id = ?", damID).Order("created_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run for dam %s: %w", damID, err)
	}
	return &run, nil
}

// Windows returns the windows of a run ordered by index
func (g *GormStore) Windows(ctx context.Context, runID string) ([]WindowRow, error) {
	var out []WindowRow
	if err := g.db.WithContext(ctx).Where("run_id = ?", runID).Order("idx").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}
	return out, nil
}

// Close closes the underlying connection pool
func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
