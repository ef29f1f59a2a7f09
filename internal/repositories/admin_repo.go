package repositories

import (
	"context"

	"github.com/BradenHooton/gatekeeper/internal/database"
	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminRepository reads the privileged admin credential from PostgreSQL
type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{pool: db.Pool}
}

// GetPrimaryByUsername returns the primary admin if its username matches
func (r *AdminRepository) GetPrimaryByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	query := `
		SELECT id, username, password_hash, created_at FROM admin_users
		WHERE id = $1 AND username = $2
	`

	var admin models.AdminUser
	err := r.pool.QueryRow(ctx, query, models.PrimaryAdminID, username).Scan(
		&admin.ID,
		&admin.Username,
		&admin.PasswordHash,
		&admin.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &admin, nil
}

// PrimaryExists reports whether the primary admin row has been created
func (r *AdminRepository) PrimaryExists(ctx context.Context) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM admin_users WHERE id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, models.PrimaryAdminID).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}

// CreatePrimary inserts the primary admin; it fails with models.ErrConflict if one exists
func (r *AdminRepository) CreatePrimary(ctx context.Context, username, passwordHash string) error {
	query := `INSERT INTO admin_users (id, username, password_hash) VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, models.PrimaryAdminID, username, passwordHash)
	return database.MapPostgresError(err)
}
