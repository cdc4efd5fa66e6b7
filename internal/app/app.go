// Package app wires the model pipeline and the catalog server together.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/khlaifiabilel/dem4water/internal/catalog"
	"github.com/khlaifiabilel/dem4water/internal/controllers/restserver"
	"github.com/khlaifiabilel/dem4water/internal/daminfo"
	"github.com/khlaifiabilel/dem4water/internal/report"
	"github.com/khlaifiabilel/dem4water/internal/szi"
	"github.com/khlaifiabilel/dem4water/pkg/config"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// Outcome is what a model run produced.
type Outcome struct {
	Dam       *daminfo.DamInfo
	Result    *szi.Result
	Artifacts report.Artifacts
	// RunID is empty when no catalog is configured
	RunID string
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run fits the model for one dam and writes every artifact.
func (a *App) Run(ctx context.Context) (*Outcome, error) {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	info, err := daminfo.Load(cfg.Input.DamInfo)
	if err != nil {
		return nil, err
	}
	a.logger.Infof("%s: dam elevation %.2f m", info.Name, info.Elevation)

	params, err := cfg.Model.Params(info.Elevation)
	if err != nil {
		return nil, err
	}
	if params.FilterArea && cfg.Input.Database != "" {
		area, err := daminfo.WaterBodyArea(cfg.Input.Database, info.Name)
		if err != nil {
			a.logger.Warnf("%s: reference area unavailable, using %.0f m² threshold: %v", info.Name, szi.DefaultMinArea, err)
		} else {
			params.ReferenceArea = area
			a.logger.Infof("%s: reference water body area %.0f m²", info.Name, area)
		}
	}

	raw, err := szi.LoadSamples(cfg.Input.SZIFile)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	est, err := szi.NewEstimator(params, a.logger)
	if err != nil {
		return nil, err
	}
	res, err := est.Estimate(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", info.Name, err)
	}
	a.logger.Infof("%s: %s", info.Name, res.Model)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep := report.NewReporter(cfg.Output.OutFile, a.logger)
	artifacts, err := rep.Write(info, res)
	if err != nil {
		return nil, err
	}
	if err := rep.WriteExtras(cfg.Output.Records, cfg.Output.HTML, info, res); err != nil {
		return nil, err
	}

	out := &Outcome{Dam: info, Result: res, Artifacts: artifacts}

	if cfg.Catalog.Backend == "" {
		return out, nil
	}
	store, err := catalog.Open(ctx, cfg.Catalog.Backend, cfg.Catalog.DSN, a.logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	run, windows := catalog.NewRun(info, res, cfg.Input.SZIFile)
	if err := store.SaveRun(ctx, run, windows); err != nil {
		return nil, fmt.Errorf("error recording run: %w", err)
	}
	a.logger.Infof("%s: run %s recorded in %s catalog", info.Name, run.ID, cfg.Catalog.Backend)
	out.RunID = run.ID

	return out, nil
}

// Serve runs the catalog REST server and blocks until shutdown. It returns
// an error when the server cannot bind or stops on its own.
func (a *App) Serve(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if cfg.Catalog.Backend == "" {
		return fmt.Errorf("no catalog backend configured")
	}

	store, err := catalog.Open(ctx, cfg.Catalog.Backend, cfg.Catalog.DSN, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctrl := restserver.NewController(ctx, &wg, store, cfg.Server, a.logger)
	if err := ctrl.StartController(); err != nil {
		return err
	}

	a.logger.Info("catalog server started successfully")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var serveErr error
	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	case serveErr = <-ctrl.Err():
		a.logger.Errorf("catalog server stopped: %v", serveErr)
	}

	cancel()

	a.logger.Info("waiting for the server to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return serveErr
}
