package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/config"
	_ "modernc.org/sqlite"
)

// sqliteSchema mirrors the goose migrations for single-node deployments.
// banned_at is stored as unix nanoseconds.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS admin_users (
		id            INTEGER PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS ip_bans (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		ip_address TEXT NOT NULL,
		banned_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ip_bans_address_banned_at ON ip_bans (ip_address, banned_at DESC)`,
}

// SQLiteDB is the embedded database backend
type SQLiteDB struct {
	Conn   *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database file at path and applies the schema
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteDB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("unable to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	// Single writer; also keeps ":memory:" on one connection
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, stmt := range sqliteSchema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("unable to apply sqlite schema: %w", err)
		}
	}

	logger.Info("database connection established",
		slog.String("driver", config.DriverSQLite),
		slog.String("path", path),
	)

	return &SQLiteDB{Conn: conn, logger: logger}, nil
}

func (db *SQLiteDB) Close() {
	db.logger.Info("closing sqlite database")
	_ = db.Conn.Close()
}

func (db *SQLiteDB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Conn.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
