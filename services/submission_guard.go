package services

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SubmissionGuard throttles accepted score submissions two ways: a per-user
// cooldown between consecutive submissions, and a trailing-one-hour quota per
// source IP. Both are advisory gates — RecordSubmission is only called after
// the full validation pipeline passes, so rejected attempts never spend
// cooldown or quota budget.
type SubmissionGuard struct {
	mu             sync.Mutex
	lastSubmission map[string]time.Time   // userID → last accepted submission
	ipSubmissions  map[string][]time.Time // IP → accepted submissions in the trailing hour

	cooldown     time.Duration
	maxPerIPHour int
	clock        clockwork.Clock
}

func NewSubmissionGuard(cooldown time.Duration, maxPerIPHour int, clock clockwork.Clock) *SubmissionGuard {
	return &SubmissionGuard{
		lastSubmission: make(map[string]time.Time),
		ipSubmissions:  make(map[string][]time.Time),
		cooldown:       cooldown,
		maxPerIPHour:   maxPerIPHour,
		clock:          clock,
	}
}

// CheckUserCooldown reports whether userID may submit. When it may not,
// retryAfter carries the whole seconds until the cooldown clears (≥ 1).
func (g *SubmissionGuard) CheckUserCooldown(userID string) (retryAfter int, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, seen := g.lastSubmission[userID]
	if !seen {
		return 0, true
	}
	elapsed := g.clock.Now().Sub(last)
	if elapsed >= g.cooldown {
		return 0, true
	}
	retryAfter = int(math.Ceil(float64(g.cooldown-elapsed) / float64(time.Second)))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return retryAfter, false
}

// CheckIPQuota reports whether ip is under its trailing-hour submission cap.
// Stale timestamps are pruned while counting.
func (g *SubmissionGuard) CheckIPQuota(ip string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pruneLocked(ip, g.clock.Now())) < g.maxPerIPHour
}

// RecordSubmission marks one accepted submission against both trackers.
func (g *SubmissionGuard) RecordSubmission(userID, ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	g.lastSubmission[userID] = now
	g.ipSubmissions[ip] = append(g.pruneLocked(ip, now), now)
}

func (g *SubmissionGuard) pruneLocked(ip string, now time.Time) []time.Time {
	cutoff := now.Add(-time.Hour)
	var kept []time.Time
	for _, t := range g.ipSubmissions[ip] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(g.ipSubmissions, ip)
	} else {
		g.ipSubmissions[ip] = kept
	}
	return kept
}

// Sweep drops cooldown entries that have fully elapsed and empties stale IP
// buckets so churned clients do not accumulate. Returns entries removed.
func (g *SubmissionGuard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	removed := 0
	for userID, last := range g.lastSubmission {
		if now.Sub(last) >= g.cooldown {
			delete(g.lastSubmission, userID)
			removed++
		}
	}
	for ip := range g.ipSubmissions {
		if len(g.pruneLocked(ip, now)) == 0 {
			removed++
		}
	}
	return removed
}
