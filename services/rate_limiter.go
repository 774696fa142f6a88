package services

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RateLimiter is the generic fixed-window request counter sitting in front
// of the whole API, keyed by client IP. It never errors — an unknown key is
// simply a first request.
type RateLimiter struct {
	mu      sync.Mutex
	records map[string]*rateLimitRecord

	max     int
	window  time.Duration
	maxKeys int
	clock   clockwork.Clock
}

type rateLimitRecord struct {
	count     int
	resetTime time.Time
}

func NewRateLimiter(max int, window time.Duration, maxKeys int, clock clockwork.Clock) *RateLimiter {
	return &RateLimiter{
		records: make(map[string]*rateLimitRecord),
		max:     max,
		window:  window,
		maxKeys: maxKeys,
		clock:   clock,
	}
}

// Allow counts one request against key and reports whether it stays under
// the per-window limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	rec, exists := rl.records[key]
	if !exists || !now.Before(rec.resetTime) {
		// Fresh key or the window rolled over — start a new window.
		if !exists && len(rl.records) >= rl.maxKeys {
			rl.evictLocked(now)
		}
		rl.records[key] = &rateLimitRecord{count: 1, resetTime: now.Add(rl.window)}
		return true
	}

	if rec.count >= rl.max {
		return false
	}
	rec.count++
	return true
}

// Evict drops expired windows, then (if the table is still over its cap)
// the windows closest to expiry. Returns how many entries were removed.
func (rl *RateLimiter) Evict() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.evictLocked(rl.clock.Now())
}

func (rl *RateLimiter) evictLocked(now time.Time) int {
	removed := 0
	for key, rec := range rl.records {
		if !now.Before(rec.resetTime) {
			delete(rl.records, key)
			removed++
		}
	}
	if len(rl.records) <= rl.maxKeys {
		return removed
	}

	// Still oversized after dropping expired windows: shed the oldest
	// resetTime entries first so long-lived busy keys survive churn.
	type aging struct {
		key       string
		resetTime time.Time
	}
	entries := make([]aging, 0, len(rl.records))
	for key, rec := range rl.records {
		entries = append(entries, aging{key, rec.resetTime})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].resetTime.Before(entries[j].resetTime) })
	for _, e := range entries {
		if len(rl.records) <= rl.maxKeys {
			break
		}
		delete(rl.records, e.key)
		removed++
	}
	return removed
}

// Len reports the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.records)
}
