package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/metrics"
)

// ExpiredBanSweeper deletes ban rows that can no longer be active
type ExpiredBanSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// StaleAttemptSweeper drops attempt records older than the window
type StaleAttemptSweeper interface {
	Sweep() int
	Len() int
}

// CleanupManager periodically removes expired bans and stale attempt records.
// Expiry is already enforced on read; this only bounds storage.
type CleanupManager struct {
	bans     ExpiredBanSweeper
	attempts StaleAttemptSweeper
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	bans ExpiredBanSweeper,
	attempts StaleAttemptSweeper,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		bans:     bans,
		attempts: attempts,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task and blocks until stopped
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce performs a single sweep of both stores
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := cm.bans.SweepExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to sweep expired bans", slog.Any("error", err))
	} else if rowsDeleted > 0 {
		cm.logger.Info("expired ban cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}

	if removed := cm.attempts.Sweep(); removed > 0 {
		cm.logger.Debug("stale attempt records removed", slog.Int("removed", removed))
	}
	metrics.TrackedAddresses.Set(float64(cm.attempts.Len()))
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
