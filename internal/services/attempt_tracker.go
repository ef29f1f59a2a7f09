package services

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const trackerShards = 32

// AttemptTracker counts consecutive login failures per address in process memory.
// Addresses are striped across shards so unrelated addresses never share a lock.
type AttemptTracker struct {
	shards [trackerShards]*trackerShard
	window time.Duration
	now    func() time.Time
}

type trackerShard struct {
	mu      sync.Mutex
	size    int
	records *simplelru.LRU[string, models.AttemptRecord]
}

// NewAttemptTracker creates a tracker sized for roughly capacity addresses. A record
// inactive for window is treated as absent. Capacity is a soft limit: a full shard
// drops only stale records and grows when none are stale.
func NewAttemptTracker(capacity int, window time.Duration) (*AttemptTracker, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("tracker capacity must be at least 1 (got %d)", capacity)
	}
	if window <= 0 {
		return nil, fmt.Errorf("tracker window must be positive")
	}

	perShard := (capacity + trackerShards - 1) / trackerShards
	t := &AttemptTracker{window: window, now: time.Now}
	for i := range t.shards {
		lru, err := simplelru.NewLRU[string, models.AttemptRecord](perShard, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create tracker shard: %w", err)
		}
		t.shards[i] = &trackerShard{size: perShard, records: lru}
	}
	return t, nil
}

// SetClock replaces the time source (for testing)
func (t *AttemptTracker) SetClock(now func() time.Time) {
	t.now = now
}

func (t *AttemptTracker) shard(address string) *trackerShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(address))
	return t.shards[h.Sum32()%trackerShards]
}

// RecordFailure increments the failure count for address and returns the new count.
// A missing or stale record restarts at 1.
func (t *AttemptTracker) RecordFailure(address string) int {
	s := t.shard(address)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := t.now()
	rec, ok := s.records.Get(address)
	if !ok || rec.IsStale(now, t.window) {
		rec = models.AttemptRecord{IPAddress: address}
	}
	rec.FailureCount++
	rec.LastFailureAt = now
	if !ok {
		s.makeRoom(now, t.window)
	}
	s.records.Add(address, rec)

	return rec.FailureCount
}

// makeRoom frees a slot for a new address. Live records are never evicted.
// Caller holds s.mu.
func (s *trackerShard) makeRoom(now time.Time, window time.Duration) {
	if s.records.Len() < s.size {
		return
	}

	// Recency follows LastFailureAt, so stale records sit at the oldest end
	for {
		_, rec, ok := s.records.GetOldest()
		if !ok || !rec.IsStale(now, window) {
			break
		}
		s.records.RemoveOldest()
	}

	if s.records.Len() >= s.size {
		s.size *= 2
		s.records.Resize(s.size)
	}
}

// Clear forgets address. Clearing an unknown address is a no-op.
func (t *AttemptTracker) Clear(address string) {
	s := t.shard(address)
	s.mu.Lock()
	s.records.Remove(address)
	s.mu.Unlock()
}

// Failures returns the live failure count for address without touching recency
func (t *AttemptTracker) Failures(address string) int {
	s := t.shard(address)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records.Peek(address)
	if !ok || rec.IsStale(t.now(), t.window) {
		return 0
	}
	return rec.FailureCount
}

// Sweep drops stale records and returns how many were removed
func (t *AttemptTracker) Sweep() int {
	removed := 0
	for _, s := range t.shards {
		s.mu.Lock()
		now := t.now()
		for _, key := range s.records.Keys() {
			if rec, ok := s.records.Peek(key); ok && rec.IsStale(now, t.window) {
				s.records.Remove(key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of records currently held, stale ones included
func (t *AttemptTracker) Len() int {
	total := 0
	for _, s := range t.shards {
		s.mu.Lock()
		total += s.records.Len()
		s.mu.Unlock()
	}
	return total
}
