package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/database"
	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BanRepository handles PostgreSQL operations for the ban ledger
type BanRepository struct {
	pool *pgxpool.Pool
}

// NewBanRepository creates a new BanRepository
func NewBanRepository(db *database.DB) *BanRepository {
	return &BanRepository{pool: db.Pool}
}

// CreateBan inserts a ban row. Duplicate rows for one address are allowed.
func (r *BanRepository) CreateBan(ctx context.Context, ipAddress string, bannedAt time.Time) error {
	query := `INSERT INTO ip_bans (ip_address, banned_at) VALUES ($1, $2)`

	_, err := r.pool.Exec(ctx, query, ipAddress, bannedAt)
	return database.MapPostgresError(err)
}

// GetLatestBan returns the most recent ban row for an address or models.ErrNotFound
func (r *BanRepository) GetLatestBan(ctx context.Context, ipAddress string) (*models.BanRecord, error) {
	query := `
		SELECT id, ip_address, banned_at FROM ip_bans
		WHERE ip_address = $1
		ORDER BY banned_at DESC, id DESC
		LIMIT 1
	`

	var ban models.BanRecord
	err := r.pool.QueryRow(ctx, query, ipAddress).Scan(&ban.ID, &ban.IPAddress, &ban.BannedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &ban, nil
}

// DeleteBans removes every ban row for an address
func (r *BanRepository) DeleteBans(ctx context.Context, ipAddress string) (int64, error) {
	query := `DELETE FROM ip_bans WHERE ip_address = $1`

	result, err := r.pool.Exec(ctx, query, ipAddress)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}

// DeleteBansThrough removes an address's ban rows created at or before through
func (r *BanRepository) DeleteBansThrough(ctx context.Context, ipAddress string, through time.Time) (int64, error) {
	query := `DELETE FROM ip_bans WHERE ip_address = $1 AND banned_at <= $2`

	result, err := r.pool.Exec(ctx, query, ipAddress, through)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}

// DeleteBansBefore removes ban rows created at or before cutoff (call periodically)
func (r *BanRepository) DeleteBansBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM ip_bans WHERE banned_at <= $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
