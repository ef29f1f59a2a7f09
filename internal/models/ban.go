package models

import (
	"math"
	"time"
)

// BanRecord is a durable ban row. Several rows may exist per address; only the
// most recent one is consulted.
type BanRecord struct {
	ID        int64     `db:"id"`
	IPAddress string    `db:"ip_address"`
	BannedAt  time.Time `db:"banned_at"`
}

// BanStatus is the result of a ban check
type BanStatus struct {
	Banned    bool
	Remaining time.Duration
}

// RemainingMinutes rounds the remaining ban time up to whole minutes for display
func (s BanStatus) RemainingMinutes() int {
	if !s.Banned || s.Remaining <= 0 {
		return 0
	}
	return int(math.Ceil(s.Remaining.Minutes()))
}
