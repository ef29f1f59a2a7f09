package services_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/models"
	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func discardAudit() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(discardLogger(), "test")
}

// fakeClock is a settable time source shared by tracker and ledger
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// MemoryBanRepository is an in-memory BanRepository. Setting an Err field makes
// the matching operation fail.
type MemoryBanRepository struct {
	mu     sync.Mutex
	rows   []models.BanRecord
	nextID int64

	CreateErr error
	LookupErr error
	DeleteErr error
}

func (m *MemoryBanRepository) CreateBan(ctx context.Context, ipAddress string, bannedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.nextID++
	m.rows = append(m.rows, models.BanRecord{ID: m.nextID, IPAddress: ipAddress, BannedAt: bannedAt})
	return nil
}

func (m *MemoryBanRepository) GetLatestBan(ctx context.Context, ipAddress string) (*models.BanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}

	var matches []models.BanRecord
	for _, row := range m.rows {
		if row.IPAddress == ipAddress {
			matches = append(matches, row)
		}
	}
	if len(matches) == 0 {
		return nil, models.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].BannedAt.Equal(matches[j].BannedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].BannedAt.After(matches[j].BannedAt)
	})
	latest := matches[0]
	return &latest, nil
}

func (m *MemoryBanRepository) DeleteBans(ctx context.Context, ipAddress string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	kept := m.rows[:0]
	var removed int64
	for _, row := range m.rows {
		if row.IPAddress == ipAddress {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return removed, nil
}

func (m *MemoryBanRepository) DeleteBansThrough(ctx context.Context, ipAddress string, through time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	kept := m.rows[:0]
	var removed int64
	for _, row := range m.rows {
		if row.IPAddress == ipAddress && !row.BannedAt.After(through) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return removed, nil
}

func (m *MemoryBanRepository) DeleteBansBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	kept := m.rows[:0]
	var removed int64
	for _, row := range m.rows {
		if !row.BannedAt.After(cutoff) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return removed, nil
}

// Count returns the number of rows stored for address
func (m *MemoryBanRepository) Count(ipAddress string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.rows {
		if row.IPAddress == ipAddress {
			n++
		}
	}
	return n
}

// MockAdminRepository implements AdminRepository for testing
type MockAdminRepository struct {
	GetPrimaryByUsernameFunc func(ctx context.Context, username string) (*models.AdminUser, error)
	PrimaryExistsFunc        func(ctx context.Context) (bool, error)
	CreatePrimaryFunc        func(ctx context.Context, username, passwordHash string) error
}

func (m *MockAdminRepository) GetPrimaryByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	if m.GetPrimaryByUsernameFunc != nil {
		return m.GetPrimaryByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminRepository) PrimaryExists(ctx context.Context) (bool, error) {
	if m.PrimaryExistsFunc != nil {
		return m.PrimaryExistsFunc(ctx)
	}
	return false, nil
}

func (m *MockAdminRepository) CreatePrimary(ctx context.Context, username, passwordHash string) error {
	if m.CreatePrimaryFunc != nil {
		return m.CreatePrimaryFunc(ctx, username, passwordHash)
	}
	return nil
}

// MockCredentialVerifier implements CredentialVerifier for testing
type MockCredentialVerifier struct {
	mu         sync.Mutex
	calls      int
	VerifyFunc func(ctx context.Context, username, password string) (bool, error)
}

func (m *MockCredentialVerifier) Verify(ctx context.Context, username, password string) (bool, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, username, password)
	}
	return false, nil
}

func (m *MockCredentialVerifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// passwordVerifier accepts exactly admin/correct
func passwordVerifier() *MockCredentialVerifier {
	return &MockCredentialVerifier{
		VerifyFunc: func(ctx context.Context, username, password string) (bool, error) {
			return username == "admin" && password == "correct", nil
		},
	}
}

// MockSessionIssuer implements SessionIssuer for testing
type MockSessionIssuer struct {
	IssueSessionFunc func(username string) (*models.Session, error)
}

func (m *MockSessionIssuer) IssueSession(username string) (*models.Session, error) {
	if m.IssueSessionFunc != nil {
		return m.IssueSessionFunc(username)
	}
	return &models.Session{Token: "token-" + username, Username: username, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// MockBanNotifier records notifications
type MockBanNotifier struct {
	mu        sync.Mutex
	addresses []string
	Err       error
}

func (m *MockBanNotifier) NotifyBan(ctx context.Context, address string, bannedAt time.Time, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses = append(m.addresses, address)
	return m.Err
}

func (m *MockBanNotifier) Addresses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.addresses...)
}
