package models

import "time"

// PrimaryAdminID is the row id of the single privileged admin credential
const PrimaryAdminID = 1

// AdminUser is the privileged credential checked by the login guard
type AdminUser struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
