package models

import "time"

// AttemptRecord tracks consecutive login failures from one address.
// It lives only in process memory.
type AttemptRecord struct {
	IPAddress     string
	FailureCount  int
	LastFailureAt time.Time
}

// IsStale reports whether the record has been inactive for at least window
func (a AttemptRecord) IsStale(now time.Time, window time.Duration) bool {
	return !now.Before(a.LastFailureAt.Add(window))
}
