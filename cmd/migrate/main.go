package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/khlaifiabilel/dem4water/internal/catalog"
	"github.com/khlaifiabilel/dem4water/internal/log"
	"github.com/khlaifiabilel/dem4water/pkg/migrate"
)

func main() {
	var (
		backend       = flag.String("backend", "sqlite", "Catalog backend (sqlite, postgres)")
		dbDSN         = flag.String("dsn", "", "Database connection string")
		command       = flag.String("command", "up", "Migration command: up, down, to, version, status")
		targetVersion = flag.String("target", "", "Target version for down/to commands")
		debug         = flag.Bool("debug", false, "Turn on debugging output")
		helpFlag      = flag.Bool("help", false, "Show help")
	)

	flag.Parse()

	if *helpFlag {
		showHelp()
		return
	}

	if *dbDSN == "" {
		fmt.Fprintf(os.Stderr, "Error: -dsn flag is required\n")
		showHelp()
		os.Exit(1)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	driver := *backend
	switch *backend {
	case "sqlite":
	case "postgres":
		driver = "pgx"
	default:
		log.Fatalf("Unknown backend: %s", *backend)
	}

	db, err := sql.Open(driver, *dbDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	migrator := migrate.NewMigrator(db, catalog.MigrationSource(*backend), log.GetSugaredLogger())

	switch *command {
	case "up":
		err = migrator.Up(ctx)
	case "down", "to":
		var target int
		target, err = parseTarget(*targetVersion)
		if err != nil {
			log.Fatalf("%s: %v", *command, err)
		}
		if *command == "down" {
			err = migrator.Down(ctx, target)
		} else {
			err = migrator.To(ctx, target)
		}
	case "version":
		version, err := migrator.Version(ctx)
		if err != nil {
			log.Fatalf("Failed to get current version: %v", err)
		}
		fmt.Printf("Current version: %d\n", version)
		return
	case "status":
		err = showStatus(ctx, migrator)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Migration command failed: %v", err)
	}

	log.Info("Migration completed successfully")
}

func parseTarget(v string) (int, error) {
	if v == "" {
		return 0, fmt.Errorf("-target flag is required")
	}
	target, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid target version: %w", err)
	}
	return target, nil
}

func showStatus(ctx context.Context, migrator *migrate.Migrator) error {
	st, err := migrator.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Current version: %d of %d\n", st.Current, st.Latest)
	if st.UpToDate() {
		fmt.Println("Catalog schema is up to date")
		return nil
	}
	fmt.Printf("\nPending migrations (%d):\n", len(st.Pending))
	for _, m := range st.Pending {
		fmt.Printf("  %03d %s\n", m.Version, m.Name)
	}
	return nil
}

func showHelp() {
	fmt.Println("Catalog Migration Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  migrate [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -backend string    Catalog backend: sqlite or postgres (default: sqlite)")
	fmt.Println("  -dsn string        Database connection string (required)")
	fmt.Println("  -command string    Migration command (default: up)")
	fmt.Println("  -target string     Target version for down/to commands")
	fmt.Println("  -debug             Turn on debugging output")
	fmt.Println("  -help              Show this help message")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up                 Apply all pending migrations")
	fmt.Println("  down               Roll back to target version")
	fmt.Println("  to                 Migrate to specific version (up or down)")
	fmt.Println("  version            Show current migration version")
	fmt.Println("  status             Show migration status")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  migrate -dsn catalog.db -command up")
	fmt.Println("  migrate -backend postgres -dsn postgres://localhost/dem4water -command status")
	fmt.Println("  migrate -dsn catalog.db -command down -target 1")
}
