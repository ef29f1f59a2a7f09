package models_test

import (
	"testing"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestBanStatus_RemainingMinutes_RoundsUp(t *testing.T) {
	tests := []struct {
		name     string
		status   models.BanStatus
		expected int
	}{
		{"not banned", models.BanStatus{}, 0},
		{"full duration", models.BanStatus{Banned: true, Remaining: 15 * time.Minute}, 15},
		{"partial minute", models.BanStatus{Banned: true, Remaining: 14*time.Minute + time.Second}, 15},
		{"last second", models.BanStatus{Banned: true, Remaining: time.Second}, 1},
		{"banned but nothing left", models.BanStatus{Banned: true, Remaining: 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.RemainingMinutes())
		})
	}
}

func TestAttemptRecord_IsStale(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	fresh := models.AttemptRecord{LastFailureAt: now.Add(-14 * time.Minute)}
	edge := models.AttemptRecord{LastFailureAt: now.Add(-15 * time.Minute)}
	old := models.AttemptRecord{LastFailureAt: now.Add(-time.Hour)}

	assert.False(t, fresh.IsStale(now, window))
	assert.True(t, edge.IsStale(now, window), "a full window of inactivity forgets the record")
	assert.True(t, old.IsStale(now, window))
}
