package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/auth"
	"github.com/BradenHooton/gatekeeper/internal/metrics"
	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/BradenHooton/gatekeeper/internal/services"
	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
)

const (
	msgCredentialsRequired = "Username and password are required"
	msgLoginFailed         = "An error occurred during login. Please try again."
	msgLoginSucceeded      = "Login successful"
)

// LoginGuardInterface defines the guard operations used by the admin handler
type LoginGuardInterface interface {
	Login(ctx context.Context, address, username, password string) (*models.Session, error)
	BanStatus(ctx context.Context, address string) models.BanStatus
}

// AdminAuthHandler serves the admin login endpoints
type AdminAuthHandler struct {
	guard        LoginGuardInterface
	ipConfig     *pkghttp.IPConfig
	cookieConfig auth.CookieConfig
	logger       *slog.Logger
}

// NewAdminAuthHandler creates a new AdminAuthHandler
func NewAdminAuthHandler(guard LoginGuardInterface, ipConfig *pkghttp.IPConfig, cookieConfig auth.CookieConfig, logger *slog.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{
		guard:        guard,
		ipConfig:     ipConfig,
		cookieConfig: cookieConfig,
		logger:       logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for admin login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=256"`
	Password string `json:"password" validate:"required,max=1024"`
}

// Response DTOs

// LoginResponse is the body of every login response
type LoginResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	AttemptsRemaining *int   `json:"attemptsRemaining,omitempty"`
	Banned            bool   `json:"banned,omitempty"`
}

// BanStatusResponse represents the response for the ban status check
type BanStatusResponse struct {
	Banned           bool `json:"banned"`
	RemainingMinutes int  `json:"remainingMinutes"`
}

// SessionResponse describes the current admin session
type SessionResponse struct {
	Authenticated bool      `json:"authenticated"`
	Username      string    `json:"username"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Login handles admin login
// @Summary Admin login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 400 {object} LoginResponse
// @Failure 401 {object} LoginResponse
// @Failure 403 {object} LoginResponse
// @Failure 500 {object} LoginResponse
// @Router /api/admin/login [post]
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeLogin(w, metrics.OutcomeBadRequest, http.StatusBadRequest, LoginResponse{Message: msgCredentialsRequired})
		return
	}

	if err := ValidateRequest(req); err != nil {
		message := msgCredentialsRequired
		if req.Username != "" && req.Password != "" {
			message = err.Error()
		}
		h.writeLogin(w, metrics.OutcomeBadRequest, http.StatusBadRequest, LoginResponse{Message: message})
		return
	}

	address := pkghttp.ResolveClientAddress(r, h.ipConfig)

	session, err := h.guard.Login(r.Context(), address, req.Username, req.Password)
	if err != nil {
		var attemptErr *services.AttemptError
		var banErr *services.BanError

		switch {
		case errors.As(err, &attemptErr):
			remaining := attemptErr.Remaining
			h.writeLogin(w, metrics.OutcomeInvalid, http.StatusUnauthorized, LoginResponse{
				Message: fmt.Sprintf("Invalid username or password. %d attempt(s) remaining before a temporary ban.",
					remaining),
				AttemptsRemaining: &remaining,
			})
		case errors.As(err, &banErr):
			minutes := banErr.RetryAfterMinutes()
			outcome := metrics.OutcomeBanned
			message := fmt.Sprintf("Too many failed login attempts. Try again in %d minute(s).", minutes)
			if banErr.NewlyBanned {
				outcome = metrics.OutcomeEscalated
				message = fmt.Sprintf("Too many failed login attempts. This address is banned for %d minute(s).", minutes)
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(banErr.RetryAfter.Round(time.Second).Seconds())))
			h.writeLogin(w, outcome, http.StatusForbidden, LoginResponse{Message: message, Banned: true})
		default:
			h.logger.Error("admin login failed",
				slog.String("ip_address", address),
				slog.Any("error", err))
			h.writeLogin(w, metrics.OutcomeServerError, http.StatusInternalServerError, LoginResponse{Message: msgLoginFailed})
		}
		return
	}

	auth.SetSessionCookie(w, session.Token, session.ExpiresAt, h.cookieConfig)
	h.writeLogin(w, metrics.OutcomeSuccess, http.StatusOK, LoginResponse{Success: true, Message: msgLoginSucceeded})
}

func (h *AdminAuthHandler) writeLogin(w http.ResponseWriter, outcome string, status int, resp LoginResponse) {
	metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	pkghttp.WriteJSON(w, status, resp)
}

// BanStatus reports whether the caller's address is banned
// @Summary Admin login ban status
// @Produce json
// @Success 200 {object} BanStatusResponse
// @Router /api/admin/ban-status [get]
func (h *AdminAuthHandler) BanStatus(w http.ResponseWriter, r *http.Request) {
	address := pkghttp.ResolveClientAddress(r, h.ipConfig)
	status := h.guard.BanStatus(r.Context(), address)

	pkghttp.WriteJSON(w, http.StatusOK, BanStatusResponse{
		Banned:           status.Banned,
		RemainingMinutes: status.RemainingMinutes(),
	})
}

// Session describes the admin session carried by the request. It must be
// mounted behind auth.RequireSession.
// @Summary Current admin session
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /api/admin/session [get]
func (h *AdminAuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	resp := SessionResponse{
		Authenticated: true,
		Username:      claims.Username,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
