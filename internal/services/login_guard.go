package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/metrics"
	"github.com/BradenHooton/gatekeeper/internal/models"
	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
)

// BanChecker is the durable side of the guard
type BanChecker interface {
	IsBanned(ctx context.Context, address string) models.BanStatus
	Ban(ctx context.Context, address string) error
}

// FailureTracker is the in-memory side of the guard
type FailureTracker interface {
	RecordFailure(address string) int
	Clear(address string)
}

// CredentialVerifier must return true only for a proven match
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (bool, error)
}

// SessionIssuer creates the session marker handed out on success
type SessionIssuer interface {
	IssueSession(username string) (*models.Session, error)
}

type GuardConfig struct {
	MaxFailures int
	BanDuration time.Duration
}

// AttemptError is returned for bad credentials while attempts remain
type AttemptError struct {
	Remaining int
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("invalid credentials: %d attempts remaining", e.Remaining)
}

func (e *AttemptError) Unwrap() error {
	return models.ErrUnauthorized
}

// BanError is returned when the address is banned, either already or as a
// result of this attempt
type BanError struct {
	RetryAfter  time.Duration
	NewlyBanned bool
}

func (e *BanError) Error() string {
	return fmt.Sprintf("address banned: retry in %d minutes", e.RetryAfterMinutes())
}

func (e *BanError) Unwrap() error {
	return models.ErrAddressBanned
}

// RetryAfterMinutes rounds RetryAfter up to whole minutes
func (e *BanError) RetryAfterMinutes() int {
	return models.BanStatus{Banned: true, Remaining: e.RetryAfter}.RemainingMinutes()
}

// LoginGuard runs admin login attempts through the ban ledger and attempt tracker
type LoginGuard struct {
	bans     BanChecker
	tracker  FailureTracker
	verifier CredentialVerifier
	sessions SessionIssuer
	notifier BanNotifier
	audit    *pkglogger.AuditLogger
	config   GuardConfig
	logger   *slog.Logger

	notifications sync.WaitGroup
}

func NewLoginGuard(
	bans BanChecker,
	tracker FailureTracker,
	verifier CredentialVerifier,
	sessions SessionIssuer,
	audit *pkglogger.AuditLogger,
	config GuardConfig,
	logger *slog.Logger,
) *LoginGuard {
	return &LoginGuard{
		bans:     bans,
		tracker:  tracker,
		verifier: verifier,
		sessions: sessions,
		notifier: NopBanNotifier{},
		audit:    audit,
		config:   config,
		logger:   logger,
	}
}

// SetNotifier installs a notifier for escalation bans
func (g *LoginGuard) SetNotifier(notifier BanNotifier) {
	g.notifier = notifier
}

// Login checks the ban ledger, verifies credentials and updates the guard state.
// Expected rejections come back as *AttemptError or *BanError; any other error
// is an internal fault.
func (g *LoginGuard) Login(ctx context.Context, address, username, password string) (*models.Session, error) {
	if status := g.bans.IsBanned(ctx, address); status.Banned {
		g.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_blocked_banned",
			Username:      username,
			IPAddress:     address,
			FailureReason: "address_banned",
		})
		return nil, &BanError{RetryAfter: status.Remaining}
	}

	ok, err := g.verifier.Verify(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}

	if ok {
		g.tracker.Clear(address)

		session, err := g.sessions.IssueSession(username)
		if err != nil {
			return nil, fmt.Errorf("failed to issue session: %w", err)
		}

		g.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType: "login_success",
			Username:  username,
			IPAddress: address,
			Success:   true,
		})
		return session, nil
	}

	failures := g.tracker.RecordFailure(address)
	if failures >= g.config.MaxFailures {
		g.escalate(ctx, address, failures)
		return nil, &BanError{RetryAfter: g.config.BanDuration, NewlyBanned: true}
	}

	g.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		Username:      username,
		IPAddress:     address,
		FailureReason: "invalid_credentials",
		Metadata:      map[string]string{"failure_count": fmt.Sprint(failures)},
	})
	return nil, &AttemptError{Remaining: g.config.MaxFailures - failures}
}

// escalate persists a ban for address. The tracker record is only cleared once
// the ban is stored, so a failed insert is retried on the next failure.
func (g *LoginGuard) escalate(ctx context.Context, address string, failures int) {
	// The ban must land even if the client hangs up.
	ctx = context.WithoutCancel(ctx)

	if err := g.bans.Ban(ctx, address); err != nil {
		g.logger.Error("failed to persist ban, keeping failure count",
			slog.String("ip_address", address),
			slog.Int("failures", failures),
			slog.Any("error", err))
		g.audit.LogBan(address, failures, g.config.BanDuration, false)
		return
	}

	g.tracker.Clear(address)
	metrics.BansIssued.Inc()
	g.audit.LogBan(address, failures, g.config.BanDuration, true)

	bannedAt := time.Now()
	notifier := g.notifier
	g.notifications.Add(1)
	go func() {
		defer g.notifications.Done()

		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := notifier.NotifyBan(notifyCtx, address, bannedAt, g.config.BanDuration); err != nil {
			g.logger.Warn("ban notification failed",
				slog.String("ip_address", address),
				slog.Any("error", err))
		}
	}()
}

// BanStatus reports the ban state of address without changing anything
func (g *LoginGuard) BanStatus(ctx context.Context, address string) models.BanStatus {
	return g.bans.IsBanned(ctx, address)
}

// Wait blocks until in-flight ban notifications have finished
func (g *LoginGuard) Wait() {
	g.notifications.Wait()
}
