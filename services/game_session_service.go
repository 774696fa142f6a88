package services

import (
	"errors"
	"log"
	"math"
	"time"

	"memory-game-server/models"
	"memory-game-server/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Client-reported numbers beyond this magnitude fail schema validation
// outright instead of being clamped.
const maxReportableValue = 1_000_000_000

// GameSessionService orchestrates the anti-cheat game lifecycle: start opens
// a short-lived server-tracked session, submit consumes it exactly once and
// persists a record whose every field is clamped against what the server's
// own clock allows. The client can legitimately report *less* than the
// server observed (network delay), never more.
type GameSessionService struct {
	cfg      Config
	sessions *SessionStore
	guard    *SubmissionGuard
	scores   ScoreRecordStore
	clock    clockwork.Clock
}

func NewGameSessionService(cfg Config, sessions *SessionStore, guard *SubmissionGuard, scores ScoreRecordStore, clock clockwork.Clock) *GameSessionService {
	return &GameSessionService{
		cfg:      cfg,
		sessions: sessions,
		guard:    guard,
		scores:   scores,
		clock:    clock,
	}
}

// StartResponse is everything the client needs to play one game.
type StartResponse struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SubmitRequest is the untrusted client payload for a finished game.
type SubmitRequest struct {
	GameID        string `json:"game_id"`
	Score         int    `json:"score"`
	TimeRemaining int    `json:"time_remaining"`
	MatchesFound  int    `json:"matches_found"`
}

// StartSession opens a new session for userID. Each call creates a distinct
// session; the per-user cap is enforced by the store.
func (s *GameSessionService) StartSession(userID, ip string) (*StartResponse, error) {
	session, err := s.sessions.Create(userID, ip)
	if err != nil {
		return nil, err
	}
	return &StartResponse{
		SessionID: session.SessionID,
		ExpiresAt: session.StartedAt.Add(s.cfg.SessionExpiry),
	}, nil
}

// SubmitScore runs the validation pipeline, short-circuiting on the first
// failure. Order matters: each step maps to a distinct client-visible error,
// and cooldown/quota are only spent once everything has passed.
func (s *GameSessionService) SubmitScore(userID, ip string, req *SubmitRequest) (*models.GameResult, error) {
	if req == nil || req.GameID == "" {
		return nil, ErrMissingSession
	}

	session, ok := s.sessions.Get(req.GameID)
	if !ok {
		return nil, ErrInvalidSession
	}
	if session.UserID != userID {
		log.Printf("🚨 [GAME] session %s owner mismatch: owner=%s caller=%s", session.SessionID, session.UserID, userID)
		return nil, ErrSessionOwnership
	}

	now := s.clock.Now()
	elapsed := now.Sub(session.StartedAt).Seconds()
	if elapsed < float64(s.cfg.MinGameDurationSeconds) {
		return nil, ErrTooFast
	}
	if elapsed > s.cfg.SessionExpiry.Seconds() {
		s.sessions.Remove(session.SessionID)
		return nil, ErrSessionExpired
	}

	if !s.guard.CheckIPQuota(ip) {
		return nil, ErrIPQuotaExceeded
	}
	if retryAfter, ok := s.guard.CheckUserCooldown(userID); !ok {
		return nil, NewSubmissionTooFrequent(retryAfter)
	}
	if err := validateGameData(req); err != nil {
		return nil, err
	}

	// Sanitization: clamp, never trust. The server's elapsed-time estimate is
	// always the upper bound on remaining time.
	matches := clampInt(req.MatchesFound, 0, s.cfg.MaxMatches)
	reportedRemaining := clampInt(req.TimeRemaining, 0, s.cfg.GameDurationSeconds)
	serverRemaining := clampInt(s.cfg.GameDurationSeconds-roundHalfUp(elapsed), 0, s.cfg.GameDurationSeconds)
	timeRemaining := minInt(serverRemaining, reportedRemaining)

	score := clampInt(minInt(matches*100, req.Score), 0, s.cfg.MaxScore)
	bonus := timeRemaining * 10

	// Consume before persisting — Take is atomic, so two racing submits for
	// the same session cannot both reach the store.
	if _, ok := s.sessions.Take(session.SessionID); !ok {
		return nil, ErrInvalidSession
	}

	result := &models.GameResult{
		ID:            uuid.NewString(),
		UserID:        userID,
		Score:         score,
		Bonus:         bonus,
		TotalPoints:   score + bonus,
		TimeRemaining: timeRemaining,
		MatchesFound:  matches,
		CompletedAt:   now,
	}
	if err := s.scores.CreateGame(result); err != nil {
		log.Printf("❌ [GAME] failed to persist result for user %s: %v", userID, err)
		return nil, err
	}

	// Spent only on full success — a rejected submission never burns the
	// user's cooldown slot or the IP's hourly quota.
	s.guard.RecordSubmission(userID, ip)

	return result, nil
}

func validateGameData(req *SubmitRequest) error {
	if req.Score < -maxReportableValue || req.Score > maxReportableValue ||
		req.TimeRemaining < -maxReportableValue || req.TimeRemaining > maxReportableValue ||
		req.MatchesFound < -maxReportableValue || req.MatchesFound > maxReportableValue {
		return ErrInvalidGameData
	}
	return nil
}

// StartGame handles POST /games/start
func (s *GameSessionService) StartGame(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	resp, err := s.StartSession(userID, utils.ClientIP(c))
	if err != nil {
		return respondGameError(c, err)
	}
	return c.JSON(resp)
}

// SubmitGame handles POST /games
func (s *GameSessionService) SubmitGame(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return respondGameError(c, ErrInvalidGameData)
	}

	result, err := s.SubmitScore(userID, utils.ClientIP(c), &req)
	if err != nil {
		return respondGameError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func respondGameError(c *fiber.Ctx, err error) error {
	var ge *GameError
	if errors.As(err, &ge) {
		body := fiber.Map{"error": ge.Message, "code": ge.Code}
		if ge.RetryAfter > 0 {
			body["retry_after_seconds"] = ge.RetryAfter
		}
		return c.Status(ge.Status).JSON(body)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// roundHalfUp truncates elapsed seconds to the nearest integer, ties up,
// so boundary behavior is deterministic.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
