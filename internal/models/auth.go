package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of the admin_session marker
type SessionClaims struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Session describes an issued admin session
type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}
