package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/gatekeeper/internal/models"
	pkgauth "github.com/BradenHooton/gatekeeper/pkg/auth"
)

// AdminRepository reads the privileged admin credential
type AdminRepository interface {
	GetPrimaryByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	PrimaryExists(ctx context.Context) (bool, error)
	CreatePrimary(ctx context.Context, username, passwordHash string) error
}

// AdminCredentialVerifier checks a username/password pair against the primary admin
type AdminCredentialVerifier struct {
	repo AdminRepository
}

func NewAdminCredentialVerifier(repo AdminRepository) *AdminCredentialVerifier {
	return &AdminCredentialVerifier{repo: repo}
}

// Verify returns (true, nil) only for a proven match. Unknown usernames still pay
// for one bcrypt comparison.
func (v *AdminCredentialVerifier) Verify(ctx context.Context, username, password string) (bool, error) {
	admin, err := v.repo.GetPrimaryByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		pkgauth.CompareDummy(password)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load admin credential: %w", err)
	}

	ok, err := pkgauth.ComparePassword(admin.PasswordHash, password)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// EnsurePrimaryAdmin creates the primary admin when none exists yet. It reports
// whether a row was created.
func EnsurePrimaryAdmin(ctx context.Context, repo AdminRepository, username, password string) (bool, error) {
	exists, err := repo.PrimaryExists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check admin user: %w", err)
	}
	if exists {
		return false, nil
	}

	if username == "" || password == "" {
		return false, fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD are required to create the admin user")
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return false, fmt.Errorf("admin password rejected: %w", err)
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return false, err
	}

	if err := repo.CreatePrimary(ctx, username, hash); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create admin user: %w", err)
	}
	return true, nil
}
