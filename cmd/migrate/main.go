package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/config"
	"github.com/BradenHooton/gatekeeper/internal/database"
	_ "github.com/lib/pq"
)

const usage = `Usage: migrate <command> [args]

Commands:
  up                 apply all pending migrations
  up-to VERSION      apply migrations up to VERSION
  down               roll back the latest migration
  down-to VERSION    roll back to VERSION
  status             print migration status
  version            print the current version

The PostgreSQL connection is read from the same DB_* variables as the API.
SQLite databases are migrated by the API on startup.`

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	dbConfig, err := config.LoadDatabase()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if dbConfig.Driver != config.DriverPostgres {
		logger.Error("migrate only supports the postgres driver", slog.String("driver", dbConfig.Driver))
		os.Exit(1)
	}

	db, err := sql.Open("postgres", dbConfig.DSN())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to ping database", slog.Any("error", err))
		os.Exit(1)
	}

	command := flag.Arg(0)
	if err := database.Migrate(ctx, db, command, flag.Args()[1:]...); err != nil {
		logger.Error("migration failed", slog.String("command", command), slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("migration completed", slog.String("command", command))
}
