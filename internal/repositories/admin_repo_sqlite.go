package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/BradenHooton/gatekeeper/internal/database"
	"github.com/BradenHooton/gatekeeper/internal/models"
)

type SQLiteAdminRepository struct {
	conn *sql.DB
}

func NewSQLiteAdminRepository(db *database.SQLiteDB) *SQLiteAdminRepository {
	return &SQLiteAdminRepository{conn: db.Conn}
}

func (r *SQLiteAdminRepository) GetPrimaryByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	query := `SELECT id, username, password_hash FROM admin_users WHERE id = ? AND username = ?`

	var admin models.AdminUser
	err := r.conn.QueryRowContext(ctx, query, models.PrimaryAdminID, username).Scan(
		&admin.ID,
		&admin.Username,
		&admin.PasswordHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &admin, nil
}

func (r *SQLiteAdminRepository) PrimaryExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM admin_users WHERE id = ?)`, models.PrimaryAdminID).Scan(&exists)
	return exists, err
}

func (r *SQLiteAdminRepository) CreatePrimary(ctx context.Context, username, passwordHash string) error {
	result, err := r.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO admin_users (id, username, password_hash) VALUES (?, ?, ?)`,
		models.PrimaryAdminID, username, passwordHash)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return models.ErrConflict
	}
	return nil
}
