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
	cfgFile := flag.String("config", "", "Optional YAML configuration (catalog and server sections)")
	backend := flag.String("catalog-backend", "sqlite", "Catalog backend: sqlite or postgres")
	dsn := flag.String("catalog", "", "Catalog database path or connection string")
	listenAddr := flag.String("listen", "", "Address to listen on")
	port := flag.Int("port", 0, "Port to listen on")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.Defaults()
	if *cfgFile != "" {
		filename, _ := filepath.Abs(*cfgFile)
		loaded, err := config.NewYAMLProvider(filename).LoadConfig()
		if err != nil {
			log.Errorf("Failed to load configuration: %v", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "catalog-backend":
			cfg.Catalog.Backend = *backend
		case "catalog":
			cfg.Catalog.DSN = *dsn
		case "listen":
			cfg.Server.ListenAddr = *listenAddr
		case "port":
			cfg.Server.Port = *port
		}
	})
	if cfg.Catalog.Backend == "" {
		cfg.Catalog.Backend = *backend
	}
	if cfg.Catalog.DSN == "" {
		log.Errorf("A catalog is required: pass -catalog or set catalog.dsn")
		os.Exit(1)
	}

	application := app.New(config.NewStaticProvider(cfg), log.GetSugaredLogger())
	if err := application.Serve(context.Background()); err != nil {
		log.Errorf("Catalog server error: %v", err)
		os.Exit(1)
	}
}
