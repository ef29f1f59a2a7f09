package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/auth"
	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/BradenHooton/gatekeeper/internal/services"
	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(guard LoginGuardInterface) *AdminAuthHandler {
	return NewAdminAuthHandler(
		guard,
		pkghttp.DefaultIPConfig(),
		auth.CookieConfig{Secure: true, SameSite: "strict"},
		slog.New(slog.NewJSONHandler(io.Discard, nil)),
	)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestLogin_Success(t *testing.T) {
	var gotAddress, gotUsername string
	guard := &MockLoginGuard{
		LoginFunc: func(ctx context.Context, address, username, password string) (*models.Session, error) {
			gotAddress, gotUsername = address, username
			return &models.Session{Token: "signed", Username: username, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}

	req := NewTestRequest(t, http.MethodPost, "/api/admin/login", LoginRequest{Username: "admin", Password: "secret"})
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	w := httptest.NewRecorder()

	newTestHandler(guard).Login(w, req)

	var resp LoginResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
	assert.Equal(t, "1.2.3.4", gotAddress)
	assert.Equal(t, "admin", gotUsername)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
	assert.Equal(t, "signed", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	body := decodeBody(t, w)
	assert.NotContains(t, body, "attemptsRemaining")
	assert.NotContains(t, body, "banned")
}

func TestLogin_MissingFields(t *testing.T) {
	guard := &MockLoginGuard{
		LoginFunc: func(ctx context.Context, address, username, password string) (*models.Session, error) {
			t.Fatal("guard must not be called for invalid input")
			return nil, nil
		},
	}

	tests := []struct {
		name string
		body string
	}{
		{"missing password", `{"username":"admin"}`},
		{"missing username", `{"password":"secret"}`},
		{"empty strings", `{"username":"","password":""}`},
		{"empty object", `{}`},
		{"malformed json", `{"username":`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			newTestHandler(guard).Login(w, req)

			var resp LoginResponse
			AssertJSONResponse(t, w, http.StatusBadRequest, &resp)
			assert.False(t, resp.Success)
			assert.Equal(t, "Username and password are required", resp.Message)
			assert.Empty(t, w.Result().Cookies())
		})
	}
}

func TestLogin_OversizedUsername(t *testing.T) {
	req := NewTestRequest(t, http.MethodPost, "/api/admin/login",
		LoginRequest{Username: strings.Repeat("a", 300), Password: "secret"})
	w := httptest.NewRecorder()

	newTestHandler(&MockLoginGuard{}).Login(w, req)

	var resp LoginResponse
	AssertJSONResponse(t, w, http.StatusBadRequest, &resp)
	assert.Contains(t, resp.Message, "username")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	guard := &MockLoginGuard{
		LoginFunc: func(ctx context.Context, address, username, password string) (*models.Session, error) {
			return nil, &services.AttemptError{Remaining: 3}
		},
	}

	req := NewTestRequest(t, http.MethodPost, "/api/admin/login", LoginRequest{Username: "admin", Password: "wrong"})
	w := httptest.NewRecorder()

	newTestHandler(guard).Login(w, req)

	var resp LoginResponse
	AssertJSONResponse(t, w, http.StatusUnauthorized, &resp)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.AttemptsRemaining)
	assert.Equal(t, 3, *resp.AttemptsRemaining)
	assert.NotContains(t, strings.ToLower(resp.Message), "password is")
	assert.Empty(t, w.Result().Cookies())
	assert.NotContains(t, decodeBody(t, w), "banned")
}

func TestLogin_AlreadyBanned(t *testing.T) {
	guard := &MockLoginGuard{
		LoginFunc: func(ctx context.Context, address, username, password string) (*models.Session, error) {
			return nil, &services.BanError{RetryAfter: 7*time.Minute + 10*time.Second}
		},
	}

	req := NewTestRequest(t, http.MethodPost, "/api/admin/login", LoginRequest{Username: "admin", Password: "secret"})
	w := httptest.NewRecorder()

	newTestHandler(guard).Login(w, req)

	var resp LoginResponse
	AssertJSONResponse(t, w, http.StatusForbidden, &resp)
	assert.False(t, resp.Success)
	assert.True(t, resp.Banned)
	assert.Contains(t, resp.Message, "8 minute")
	assert.Equal(t, "430", w.Header().Get("Retry-After"))
	assert.NotContains(t, decodeBody(t, w), "attemptsRemaining")
}

func TestLogin_NewlyBanned(t *testing.T) {
	guard := &MockLoginGuard{
		LoginFunc: func(ctx context.Context, address, username, password string) (*models.Session, error) {
			return nil, &services.BanError{RetryAfter: 15 * time.Minute, NewlyBanned: true}
		},
	}

	req := NewTestRequest(t, http.MethodPost, "/api/admin/login", LoginRequest{Username: "admin", Password: "wrong"})
	w := httptest.NewRecorder()

	newTestHandler(guard).Login(w, req)

	var resp LoginResponse
	AssertJSONResponse(t, w, http.StatusForbidden, &resp)
	assert.True(t, resp.Banned)
	assert.Contains(t, resp.Message, "15 minute")
}

func TestLogin_UnexpectedErrorIsGeneric(t *testing.T) {
	guard := &MockLoginGuard{
		LoginFunc: func(ctx context.Context, address, username, password string) (*models.Session, error) {
			return nil, errors.New("pq: relation \"admin_users\" does not exist")
		},
	}

	req := NewTestRequest(t, http.MethodPost, "/api/admin/login", LoginRequest{Username: "admin", Password: "secret"})
	w := httptest.NewRecorder()

	newTestHandler(guard).Login(w, req)

	var resp LoginResponse
	AssertJSONResponse(t, w, http.StatusInternalServerError, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "An error occurred during login. Please try again.", resp.Message)
	assert.NotContains(t, w.Body.String(), "admin_users")
}

func TestBanStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      models.BanStatus
		wantBanned  bool
		wantMinutes int
	}{
		{"not banned", models.BanStatus{}, false, 0},
		{"banned rounds up", models.BanStatus{Banned: true, Remaining: 90 * time.Second}, true, 2},
		{"banned whole minutes", models.BanStatus{Banned: true, Remaining: 15 * time.Minute}, true, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAddress string
			guard := &MockLoginGuard{
				BanStatusFunc: func(ctx context.Context, address string) models.BanStatus {
					gotAddress = address
					return tt.status
				},
			}

			req := httptest.NewRequest(http.MethodGet, "/api/admin/ban-status", nil)
			req.RemoteAddr = "5.6.7.8:51234"
			w := httptest.NewRecorder()

			newTestHandler(guard).BanStatus(w, req)

			var resp BanStatusResponse
			AssertJSONResponse(t, w, http.StatusOK, &resp)
			assert.Equal(t, tt.wantBanned, resp.Banned)
			assert.Equal(t, tt.wantMinutes, resp.RemainingMinutes)
			assert.Equal(t, "5.6.7.8", gotAddress)

			body := decodeBody(t, w)
			assert.Contains(t, body, "banned")
			assert.Contains(t, body, "remainingMinutes")
		})
	}
}

func TestSession(t *testing.T) {
	sm := auth.NewSessionManager("test-secret-32-characters-long!!", time.Hour)
	session, err := sm.IssueSession("admin")
	require.NoError(t, err)

	handler := auth.RequireSession(sm)(http.HandlerFunc(newTestHandler(&MockLoginGuard{}).Session))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/session", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: session.Token})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var resp SessionResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.True(t, resp.Authenticated)
	assert.Equal(t, "admin", resp.Username)
	assert.WithinDuration(t, session.ExpiresAt, resp.ExpiresAt, time.Second)
}

func TestSession_WithoutMiddlewareIsUnauthorized(t *testing.T) {
	w := httptest.NewRecorder()
	newTestHandler(&MockLoginGuard{}).Session(w, httptest.NewRequest(http.MethodGet, "/api/admin/session", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
