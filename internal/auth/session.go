package auth

import (
	"fmt"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionType = "admin_session"

// SessionManager signs and validates admin session markers
type SessionManager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(secret string, expiry time.Duration) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// Expiry returns how long an issued session stays valid
func (sm *SessionManager) Expiry() time.Duration {
	return sm.expiry
}

// IssueSession creates a signed session for username with a unique JTI
func (sm *SessionManager) IssueSession(username string) (*models.Session, error) {
	now := sm.now()
	expiresAt := now.Add(sm.expiry)

	claims := &models.SessionClaims{
		Type:     sessionType,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(sm.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}

	return &models.Session{
		Token:     signed,
		Username:  username,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateSession verifies a session token and returns its claims
func (sm *SessionManager) ValidateSession(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return sm.secret, nil
	}, jwt.WithTimeFunc(sm.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != sessionType {
		return nil, fmt.Errorf("invalid session: unexpected type %q", claims.Type)
	}

	return claims, nil
}
