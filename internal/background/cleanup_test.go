package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeBanSweeper struct {
	calls atomic.Int32
	err   error
}

func (f *fakeBanSweeper) SweepExpired(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	return 2, f.err
}

type fakeAttemptSweeper struct {
	calls atomic.Int32
}

func (f *fakeAttemptSweeper) Sweep() int {
	f.calls.Add(1)
	return 1
}

func (f *fakeAttemptSweeper) Len() int { return 3 }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestCleanupManager_RunOnceSweepsBothStores(t *testing.T) {
	bans := &fakeBanSweeper{}
	attempts := &fakeAttemptSweeper{}
	cm := NewCleanupManager(bans, attempts, discardLogger(), time.Hour)

	cm.RunOnce(context.Background())

	assert.Equal(t, int32(1), bans.calls.Load())
	assert.Equal(t, int32(1), attempts.calls.Load())
}

func TestCleanupManager_BanSweepErrorStillSweepsAttempts(t *testing.T) {
	bans := &fakeBanSweeper{err: errors.New("database is locked")}
	attempts := &fakeAttemptSweeper{}
	cm := NewCleanupManager(bans, attempts, discardLogger(), time.Hour)

	cm.RunOnce(context.Background())

	assert.Equal(t, int32(1), attempts.calls.Load())
}

func TestCleanupManager_StartRunsImmediatelyAndStops(t *testing.T) {
	bans := &fakeBanSweeper{}
	attempts := &fakeAttemptSweeper{}
	cm := NewCleanupManager(bans, attempts, discardLogger(), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return bans.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cm.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}
}

func TestCleanupManager_StopsOnContextCancel(t *testing.T) {
	cm := NewCleanupManager(&fakeBanSweeper{}, &fakeAttemptSweeper{}, discardLogger(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cm.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop on cancel")
	}
}
