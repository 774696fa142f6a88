package services

import "fmt"

// GameError is a client-visible rejection from the session/score pipeline.
// Status is the HTTP status the handler layer responds with; Code is stable
// across releases so clients can branch on it.
type GameError struct {
	Code       string
	Status     int
	Message    string
	RetryAfter int // seconds; only set on cooldown rejections
}

func (e *GameError) Error() string { return e.Message }

// Is matches on Code so errors.Is works against the sentinels below even for
// instances built at runtime (cooldown carries a per-request retry hint).
func (e *GameError) Is(target error) bool {
	t, ok := target.(*GameError)
	return ok && t.Code == e.Code
}

var (
	ErrTooManyActiveSessions = &GameError{Code: "TOO_MANY_ACTIVE_SESSIONS", Status: 429, Message: "too many active game sessions — finish or wait out an existing one"}
	ErrMissingSession        = &GameError{Code: "MISSING_SESSION", Status: 400, Message: "game_id is required"}
	ErrInvalidSession        = &GameError{Code: "INVALID_OR_EXPIRED_SESSION", Status: 400, Message: "invalid or already used game session"}
	ErrSessionOwnership      = &GameError{Code: "SESSION_OWNERSHIP_MISMATCH", Status: 403, Message: "game session belongs to a different user"}
	ErrTooFast               = &GameError{Code: "TOO_FAST", Status: 400, Message: "game completed faster than plausible"}
	ErrSessionExpired        = &GameError{Code: "SESSION_EXPIRED", Status: 400, Message: "game session expired — start a new game"}
	ErrIPQuotaExceeded       = &GameError{Code: "IP_QUOTA_EXCEEDED", Status: 429, Message: "too many games from this address — try again later"}
	ErrInvalidGameData       = &GameError{Code: "INVALID_GAME_DATA", Status: 400, Message: "invalid game data"}
)

// NewSubmissionTooFrequent builds the per-user cooldown rejection with its
// retry-after hint in whole seconds.
func NewSubmissionTooFrequent(retryAfter int) *GameError {
	return &GameError{
		Code:       "SUBMISSION_TOO_FREQUENT",
		Status:     429,
		Message:    fmt.Sprintf("please wait %d second(s) before submitting again", retryAfter),
		RetryAfter: retryAfter,
	}
}

// ErrSubmissionTooFrequent is the comparison target for errors.Is checks.
var ErrSubmissionTooFrequent = &GameError{Code: "SUBMISSION_TOO_FREQUENT", Status: 429}
