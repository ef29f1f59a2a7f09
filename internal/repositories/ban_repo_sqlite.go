package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/database"
	"github.com/BradenHooton/gatekeeper/internal/models"
)

// SQLiteBanRepository is the embedded ban ledger. Timestamps are unix nanoseconds.
type SQLiteBanRepository struct {
	conn *sql.DB
}

func NewSQLiteBanRepository(db *database.SQLiteDB) *SQLiteBanRepository {
	return &SQLiteBanRepository{conn: db.Conn}
}

func (r *SQLiteBanRepository) CreateBan(ctx context.Context, ipAddress string, bannedAt time.Time) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO ip_bans (ip_address, banned_at) VALUES (?, ?)`,
		ipAddress, bannedAt.UnixNano())
	return err
}

func (r *SQLiteBanRepository) GetLatestBan(ctx context.Context, ipAddress string) (*models.BanRecord, error) {
	query := `
		SELECT id, ip_address, banned_at FROM ip_bans
		WHERE ip_address = ?
		ORDER BY banned_at DESC, id DESC
		LIMIT 1
	`

	var (
		ban      models.BanRecord
		bannedAt int64
	)
	err := r.conn.QueryRowContext(ctx, query, ipAddress).Scan(&ban.ID, &ban.IPAddress, &bannedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	ban.BannedAt = time.Unix(0, bannedAt)
	return &ban, nil
}

func (r *SQLiteBanRepository) DeleteBans(ctx context.Context, ipAddress string) (int64, error) {
	result, err := r.conn.ExecContext(ctx, `DELETE FROM ip_bans WHERE ip_address = ?`, ipAddress)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *SQLiteBanRepository) DeleteBansThrough(ctx context.Context, ipAddress string, through time.Time) (int64, error) {
	result, err := r.conn.ExecContext(ctx,
		`DELETE FROM ip_bans WHERE ip_address = ? AND banned_at <= ?`,
		ipAddress, through.UnixNano())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *SQLiteBanRepository) DeleteBansBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.conn.ExecContext(ctx, `DELETE FROM ip_bans WHERE banned_at <= ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
