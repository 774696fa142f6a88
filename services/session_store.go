package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// GameSession is one server-tracked play-through authorization: created on
// /games/start, consumed exactly once by a successful submission, or swept
// once its lifetime passes.
type GameSession struct {
	SessionID string
	UserID    string
	SourceIP  string
	StartedAt time.Time
}

// SessionStore is the in-memory registry of live game sessions. A single
// mutex covers every lookup+mutate pair so check-then-delete is atomic.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*GameSession

	maxPerUser int
	expiry     time.Duration
	clock      clockwork.Clock
}

func NewSessionStore(maxPerUser int, expiry time.Duration, clock clockwork.Clock) *SessionStore {
	return &SessionStore{
		sessions:   make(map[string]*GameSession),
		maxPerUser: maxPerUser,
		expiry:     expiry,
		clock:      clock,
	}
}

// Create registers a new session for userID, enforcing the live-session cap.
// Expired sessions encountered along the way are dropped so abandoned games
// free their slot without waiting for the sweep.
func (ss *SessionStore) Create(userID, sourceIP string) (*GameSession, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := ss.clock.Now()
	live := 0
	for id, s := range ss.sessions {
		if now.Sub(s.StartedAt) > ss.expiry {
			delete(ss.sessions, id)
			continue
		}
		if s.UserID == userID {
			live++
		}
	}
	if live >= ss.maxPerUser {
		return nil, ErrTooManyActiveSessions
	}

	id := uuid.NewString()
	for _, taken := ss.sessions[id]; taken; _, taken = ss.sessions[id] {
		id = uuid.NewString()
	}

	session := &GameSession{
		SessionID: id,
		UserID:    userID,
		SourceIP:  sourceIP,
		StartedAt: now,
	}
	ss.sessions[id] = session
	return session, nil
}

// Get returns the session without consuming it.
func (ss *SessionStore) Get(sessionID string) (*GameSession, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s, ok := ss.sessions[sessionID]
	return s, ok
}

// Take removes and returns the session in a single step. Two racing submits
// for the same id cannot both obtain it.
func (ss *SessionStore) Take(sessionID string) (*GameSession, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s, ok := ss.sessions[sessionID]
	if ok {
		delete(ss.sessions, sessionID)
	}
	return s, ok
}

// Remove deletes the session if present. Idempotent.
func (ss *SessionStore) Remove(sessionID string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, sessionID)
}

// SweepExpired drops every session past its lifetime and returns how many
// were removed. Safe to call on an empty store.
func (ss *SessionStore) SweepExpired() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := ss.clock.Now()
	removed := 0
	for id, s := range ss.sessions {
		if now.Sub(s.StartedAt) > ss.expiry {
			delete(ss.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked sessions (expired ones included until
// they are swept).
func (ss *SessionStore) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}
