// Package main provides a database migration runner for the sqlite and
// postgres storage backends.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/cory-johannsen/dicebag/internal/config"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (defaults and DICEBAG_* variables when empty)")
	backend := flag.String("backend", "", "override storage.backend: sqlite or postgres")
	dir := flag.String("migrations", "migrations", "migrations root directory")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
	}

	var sourceURL, databaseURL string
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		sourceURL = "file://" + filepath.Join(*dir, "postgres")
		databaseURL = cfg.Database.DSN()
	case config.BackendSQLite:
		sourceURL = "file://" + filepath.Join(*dir, "sqlite")
		databaseURL = "sqlite://" + cfg.Storage.Path
	default:
		log.Fatalf("backend %q has no migrations: must be 'sqlite' or 'postgres'", cfg.Storage.Backend)
	}

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		log.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	default:
		log.Fatalf("invalid direction %q: must be 'up' or 'down'", *direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration failed: %v", err)
	}

	version, dirty, _ := m.Version()
	elapsed := time.Since(start)

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintf(os.Stdout, "no changes (backend=%s version=%d dirty=%v) [%s]\n", cfg.Storage.Backend, version, dirty, elapsed)
	} else {
		fmt.Fprintf(os.Stdout, "migrated %s %s to version=%d dirty=%v [%s]\n", cfg.Storage.Backend, *direction, version, dirty, elapsed)
	}
}
