package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"

	"github.com/BradenHooton/gatekeeper/migrations"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate runs a goose command ("up", "down", "status", ...) against the embedded migrations
func Migrate(ctx context.Context, db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, ".", args...); err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	return nil
}

// RunMigrations applies all pending migrations on the pool's database
func (db *DB) RunMigrations(ctx context.Context) error {
	// Goose needs a database/sql handle
	sqlDB := stdlib.OpenDB(*db.Pool.Config().ConnConfig)
	defer sqlDB.Close()

	goose.SetLogger(log.New(io.Discard, "", 0))

	if err := Migrate(ctx, sqlDB, "up"); err != nil {
		return err
	}

	if db.logger != nil {
		db.logger.Info("database migrations applied")
	}
	return nil
}
