package services

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func newTestGuard(cooldown time.Duration, maxPerHour int) (*SubmissionGuard, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewSubmissionGuard(cooldown, maxPerHour, clock), clock
}

func TestSubmissionGuard_FirstSubmissionHasNoCooldown(t *testing.T) {
	g, _ := newTestGuard(5*time.Second, 100)

	retryAfter, ok := g.CheckUserCooldown("alice")
	assert.True(t, ok)
	assert.Zero(t, retryAfter)
}

func TestSubmissionGuard_CooldownBlocksThenClears(t *testing.T) {
	g, clock := newTestGuard(5*time.Second, 100)

	g.RecordSubmission("alice", "10.0.0.1")

	retryAfter, ok := g.CheckUserCooldown("alice")
	assert.False(t, ok)
	assert.Equal(t, 5, retryAfter)

	// Partway through, the hint rounds the remainder up to whole seconds
	clock.Advance(1200 * time.Millisecond)
	retryAfter, ok = g.CheckUserCooldown("alice")
	assert.False(t, ok)
	assert.Equal(t, 4, retryAfter)

	clock.Advance(3800 * time.Millisecond) // exactly 5s since the submission
	_, ok = g.CheckUserCooldown("alice")
	assert.True(t, ok)

	// Cooldown is per user
	_, ok = g.CheckUserCooldown("bob")
	assert.True(t, ok)
}

func TestSubmissionGuard_IPQuotaTrailingHour(t *testing.T) {
	g, clock := newTestGuard(0, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, g.CheckIPQuota("10.0.0.1"))
		g.RecordSubmission("alice", "10.0.0.1")
		clock.Advance(time.Minute)
	}
	assert.False(t, g.CheckIPQuota("10.0.0.1"))

	// Quota is per IP
	assert.True(t, g.CheckIPQuota("10.0.0.2"))

	// The window trails: once the oldest timestamp ages past an hour the
	// quota frees up again.
	clock.Advance(58 * time.Minute) // first submission is now 61m old
	assert.True(t, g.CheckIPQuota("10.0.0.1"))
}

func TestSubmissionGuard_SweepPrunesStaleState(t *testing.T) {
	g, clock := newTestGuard(5*time.Second, 100)

	g.RecordSubmission("alice", "10.0.0.1")
	g.RecordSubmission("bob", "10.0.0.2")

	clock.Advance(2 * time.Hour)
	removed := g.Sweep()
	assert.Equal(t, 4, removed) // 2 cooldown entries + 2 emptied IP buckets

	// Sweep on clean state is a no-op
	assert.Equal(t, 0, g.Sweep())
}
