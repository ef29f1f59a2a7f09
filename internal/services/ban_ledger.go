package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/metrics"
	"github.com/BradenHooton/gatekeeper/internal/models"
)

// BanRepository is the durable store behind the ban ledger
type BanRepository interface {
	CreateBan(ctx context.Context, ipAddress string, bannedAt time.Time) error
	GetLatestBan(ctx context.Context, ipAddress string) (*models.BanRecord, error)
	DeleteBans(ctx context.Context, ipAddress string) (int64, error)
	DeleteBansThrough(ctx context.Context, ipAddress string, through time.Time) (int64, error)
	DeleteBansBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// BanLedger answers whether an address is banned. Expiry is evaluated on read.
type BanLedger struct {
	repo     BanRepository
	duration time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewBanLedger(repo BanRepository, duration time.Duration, logger *slog.Logger) *BanLedger {
	return &BanLedger{
		repo:     repo,
		duration: duration,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source (for testing)
func (l *BanLedger) SetClock(now func() time.Time) {
	l.now = now
}

// Duration returns how long a ban lasts
func (l *BanLedger) Duration() time.Duration {
	return l.duration
}

// IsBanned reports the ban state of address. Store faults are logged and
// reported as not banned.
func (l *BanLedger) IsBanned(ctx context.Context, address string) models.BanStatus {
	ban, err := l.repo.GetLatestBan(ctx, address)
	if errors.Is(err, models.ErrNotFound) {
		return models.BanStatus{}
	}
	if err != nil {
		metrics.BanLedgerFaults.WithLabelValues("lookup").Inc()
		l.logger.Error("ban lookup failed, allowing request",
			slog.String("ip_address", address),
			slog.Any("error", err))
		return models.BanStatus{}
	}

	elapsed := l.now().Sub(ban.BannedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed < l.duration {
		return models.BanStatus{Banned: true, Remaining: l.duration - elapsed}
	}

	// Rows newer than the one just read are kept
	if _, err := l.repo.DeleteBansThrough(ctx, address, ban.BannedAt); err != nil {
		metrics.BanLedgerFaults.WithLabelValues("unban").Inc()
		l.logger.Warn("failed to delete expired ban",
			slog.String("ip_address", address),
			slog.Any("error", err))
	}
	return models.BanStatus{}
}

// Ban records a new ban for address starting now
func (l *BanLedger) Ban(ctx context.Context, address string) error {
	if err := l.repo.CreateBan(ctx, address, l.now()); err != nil {
		metrics.BanLedgerFaults.WithLabelValues("ban").Inc()
		return fmt.Errorf("failed to record ban: %w", err)
	}
	return nil
}

// Unban deletes every ban row for address
func (l *BanLedger) Unban(ctx context.Context, address string) error {
	if _, err := l.repo.DeleteBans(ctx, address); err != nil {
		metrics.BanLedgerFaults.WithLabelValues("unban").Inc()
		return fmt.Errorf("failed to delete bans: %w", err)
	}
	return nil
}

// SweepExpired deletes rows whose ban has already run out
func (l *BanLedger) SweepExpired(ctx context.Context) (int64, error) {
	n, err := l.repo.DeleteBansBefore(ctx, l.now().Add(-l.duration))
	if err != nil {
		metrics.BanLedgerFaults.WithLabelValues("sweep").Inc()
		return 0, fmt.Errorf("failed to sweep expired bans: %w", err)
	}
	return n, nil
}
