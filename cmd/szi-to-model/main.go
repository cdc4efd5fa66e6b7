package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/khlaifiabilel/dem4water/internal/app"
	"github.com/khlaifiabilel/dem4water/internal/log"
	"github.com/khlaifiabilel/dem4water/pkg/config"
)

func main() {
	defaults := config.Defaults()
	dm := defaults.Model

	cfgFile := flag.String("config", "", "Optional YAML configuration; flags given on the command line override it")
	sziFile := flag.String("szi_file", "", "Path to the S(Z) samples file (.dat)")
	damInfo := flag.String("daminfo", "", "Path to the daminfo GeoJSON")
	database := flag.String("database", "", "Water body database GeoJSON, gives the reference area for -filter_area")
	outFile := flag.String("outfile", "", "Path of the model plot; the other outputs share its base name")
	winSize := flag.Int("winsize", dm.WinSize, "Window size in samples")
	zMaxOffset := flag.Int("zmaxoffset", dm.ZMaxOffset, "Elevation offset above the dam to stop the scan (m)")
	zMinOffset := flag.Int("zminoffset", dm.ZMinOffset, "Elevation offset below the dam to start the scan (m)")
	maeMode := flag.String("maemode", dm.MAEMode, "Window selection: absolute, first or hybrid")
	dSlopeThresh := flag.Float64("dslopethresh", dm.DSlopeThresh, "Slope derivative threshold for hybrid mode")
	selectionMode := flag.String("selection_mode", dm.SelectionMode, "Sample selection: best or firsts")
	jumpRatio := flag.Float64("jump_ratio", dm.JumpRatio, "Area ratio between neighbours treated as a jump")
	filterArea := flag.String("filter_area", dm.FilterArea, "Drop small areas: enabled or disabled")
	records := flag.String("records", "", "Optional msgpack dump of the scanned windows")
	html := flag.String("html", "", "Optional interactive MAE chart (HTML)")
	catalogBackend := flag.String("catalog-backend", "", "Record the run in a catalog: sqlite or postgres")
	catalogDSN := flag.String("catalog", "", "Catalog database path or connection string")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := defaults
	if *cfgFile != "" {
		filename, _ := filepath.Abs(*cfgFile)
		loaded, err := config.NewYAMLProvider(filename).LoadConfig()
		if err != nil {
			log.Errorf("Failed to load configuration: %v", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given explicitly override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "szi_file":
			cfg.Input.SZIFile = *sziFile
		case "daminfo":
			cfg.Input.DamInfo = *damInfo
		case "database":
			cfg.Input.Database = *database
		case "outfile":
			cfg.Output.OutFile = *outFile
		case "records":
			cfg.Output.Records = *records
		case "html":
			cfg.Output.HTML = *html
		case "winsize":
			cfg.Model.WinSize = *winSize
		case "zmaxoffset":
			cfg.Model.ZMaxOffset = *zMaxOffset
		case "zminoffset":
			cfg.Model.ZMinOffset = *zMinOffset
		case "maemode":
			cfg.Model.MAEMode = *maeMode
		case "dslopethresh":
			cfg.Model.DSlopeThresh = *dSlopeThresh
		case "selection_mode":
			cfg.Model.SelectionMode = *selectionMode
		case "jump_ratio":
			cfg.Model.JumpRatio = *jumpRatio
		case "filter_area":
			cfg.Model.FilterArea = *filterArea
		case "catalog-backend":
			cfg.Catalog.Backend = *catalogBackend
		case "catalog":
			cfg.Catalog.DSN = *catalogDSN
		}
	})
	if cfg.Catalog.DSN != "" && cfg.Catalog.Backend == "" {
		cfg.Catalog.Backend = "sqlite"
	}

	application := app.New(config.NewStaticProvider(cfg), log.GetSugaredLogger())
	out, err := application.Run(context.Background())
	if err != nil {
		log.Errorf("Model estimation failed: %v", err)
		os.Exit(1)
	}

	log.Infow("model written",
		"dam", out.Dam.Name,
		"model", out.Artifacts.Model,
		"mode", out.Result.Selection.Mode,
		"found", out.Result.Selection.Found,
		"shortage", out.Result.Scan.Shortage.String(),
	)
}
