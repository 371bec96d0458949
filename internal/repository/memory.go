package repository

import (
	"context"
	"sync"
	"time"

	"shareit/internal/clock"
)

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryRateLimiter is the single-process counterpart of RedisRateLimiter.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[int64]*rateLimitEntry
	clock   clock.Clock
}

func NewMemoryRateLimiter(c clock.Clock) *MemoryRateLimiter {
	if c == nil {
		c = clock.NewRealClock()
	}
	return &MemoryRateLimiter{
		entries: make(map[int64]*rateLimitEntry),
		clock:   c,
	}
}

func (r *MemoryRateLimiter) CheckRateLimit(_ context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[userID]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.entries[userID] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}

// Prune drops expired windows and returns how many were removed.
func (r *MemoryRateLimiter) Prune() int {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, entry := range r.entries {
		if !now.Before(entry.expiresAt) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}
