// Package catalog records model runs so they can be compared and served later.
package catalog

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khlaifiabilel/dem4water/internal/daminfo"
	"github.com/khlaifiabilel/dem4water/internal/szi"
	"github.com/khlaifiabilel/dem4water/pkg/migrate"
)

//go:embed migrations
var migrations embed.FS

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("run not found")

// Run is one recorded model estimation.
type Run struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	DamID        string    `json:"dam_id"`
	DamName      string    `json:"dam_name"`
	DamElevation float64   `json:"dam_elevation"`
	Mode         string    `json:"mode"`
	Found        bool      `json:"found"`
	Shortage     string    `json:"shortage"`
	Z0           float64   `json:"z0" gorm:"column:z0"`
	S0           float64   `json:"s0" gorm:"column:s0"`
	V0           float64   `json:"v0" gorm:"column:v0"`
	Alpha        float64   `json:"alpha"`
	Beta         float64   `json:"beta"`
	MAE          float64   `json:"mae" gorm:"column:mae"`
	WindowStart  int       `json:"window_start"`
	WindowEnd    int       `json:"window_end"`
	SZIFile      string    `json:"szi_file" gorm:"column:szi_file"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName pins the gorm table name
func (Run) TableName() string { return "runs" }

// Model returns the power law stored in the run.
func (r Run) Model() szi.Model {
	return szi.Model{Z0: r.Z0, S0: r.S0, V0: r.V0, Alpha: r.Alpha, Beta: r.Beta}
}

// WindowRow is one scanned window of a run.
type WindowRow struct {
	RunID      string  `json:"run_id" gorm:"primaryKey"`
	Idx        int     `json:"idx" gorm:"primaryKey"`
	StartIndex int     `json:"start_index"`
	EndIndex   int     `json:"end_index"`
	MedianZ    float64 `json:"median_z" gorm:"column:median_z"`
	MedianS    float64 `json:"median_s" gorm:"column:median_s"`
	Alpha      float64 `json:"alpha"`
	Beta       float64 `json:"beta"`
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	MAE        float64 `json:"mae" gorm:"column:mae"`
}

// TableName pins the gorm table name
func (WindowRow) TableName() string { return "windows" }

// Store persists runs
type Store interface {
	SaveRun(ctx context.Context, run *Run, windows []WindowRow) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	Windows(ctx context.Context, runID string) ([]WindowRow, error)
	LatestForDam(ctx context.Context, damID string) (*Run, error)
	Schema(ctx context.Context) (migrate.Status, error)
	Close() error
}

// NewRun converts an estimation result into a run with a fresh ID.
func NewRun(info *daminfo.DamInfo, res *szi.Result, sziFile string) (*Run, []WindowRow) {
	sel := res.Selection.Window
	run := &Run{
		ID:           uuid.NewString(),
		DamID:        info.ID,
		DamName:      info.Name,
		DamElevation: info.Elevation,
		Mode:         string(res.Selection.Mode),
		Found:        res.Selection.Found,
		Shortage:     res.Scan.Shortage.String(),
		Z0:           res.Model.Z0,
		S0:           res.Model.S0,
		V0:           res.Model.V0,
		Alpha:        res.Model.Alpha,
		Beta:         res.Model.Beta,
		MAE:          sel.Fit.MAE,
		WindowStart:  sel.Start,
		WindowEnd:    sel.End,
		SZIFile:      sziFile,
		CreatedAt:    time.Now().UTC(),
	}

	windows := make([]WindowRow, len(res.Scan.Records))
	for i, w := range res.Scan.Records {
		windows[i] = WindowRow{
			RunID:      run.ID,
			Idx:        i,
			StartIndex: w.Start,
			EndIndex:   w.End,
			MedianZ:    w.MedianZ,
			MedianS:    w.MedianS,
			Alpha:      w.Fit.Alpha,
			Beta:       w.Fit.Beta,
			Slope:      w.Fit.Slope,
			Intercept:  w.Fit.Intercept,
			MAE:        w.Fit.MAE,
		}
	}
	return run, windows
}

// Open connects to the catalog backend ("sqlite" or "postgres") and
// brings its schema up to date.
func Open(ctx context.Context, backend, dsn string, logger *zap.SugaredLogger) (Store, error) {
	switch backend {
	case "sqlite":
		s, err := OpenSQLite(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := OpenPostgres(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", backend)
	}
}
