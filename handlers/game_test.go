package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"memory-game-server/middleware"
	"memory-game-server/models"
	"memory-game-server/services"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGatewayToken = "test-gateway-token"

type fakeScoreStore struct {
	created []*models.GameResult
}

func (f *fakeScoreStore) CreateGame(result *models.GameResult) error {
	f.created = append(f.created, result)
	return nil
}
func (f *fakeScoreStore) GetLeaderboard(int) ([]services.LeaderboardRow, error) { return nil, nil }
func (f *fakeScoreStore) GetUserStats(string) (*services.UserStats, error)      { return nil, nil }
func (f *fakeScoreStore) GetUserGames(string, int) ([]models.GameResult, error) { return nil, nil }

func newTestApp(t *testing.T) (*fiber.App, *clockwork.FakeClock) {
	t.Helper()

	cfg := services.DefaultConfig()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	sessions := services.NewSessionStore(cfg.MaxActiveSessionsPerUser, cfg.SessionExpiry, clock)
	guard := services.NewSubmissionGuard(cfg.UserSubmissionCooldown, cfg.MaxGamesPerIPPerHour, clock)
	gameService := services.NewGameSessionService(cfg, sessions, guard, &fakeScoreStore{}, clock)

	app := fiber.New()
	app.Use(middleware.GatewayAuthMiddleware(testGatewayToken))
	SetupGameRoutes(app, gameService, services.NewScoreService(nil))
	return app, clock
}

func doRequest(t *testing.T, app *fiber.App, method, path, userID string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testGatewayToken)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestRoutes_RequireGatewayToken(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/games/start", nil)
	req.Header.Set("X-User-ID", "alice")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRoutes_RequireUserContext(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, "POST", "/games/start", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestStartAndSubmitFlow(t *testing.T) {
	app, clock := newTestApp(t)

	resp := doRequest(t, app, "POST", "/games/start", "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	started := decodeBody(t, resp)
	sessionID, _ := started["session_id"].(string)
	require.NotEmpty(t, sessionID)

	clock.Advance(20 * time.Second)
	resp = doRequest(t, app, "POST", "/games", "alice", fiber.Map{
		"game_id":        sessionID,
		"score":          999999,
		"time_remaining": 90,
		"matches_found":  2,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	result := decodeBody(t, resp)
	assert.Equal(t, float64(200), result["score"])
	assert.Equal(t, float64(70), result["time_remaining"])
	assert.Equal(t, float64(700), result["bonus"])
	assert.Equal(t, float64(900), result["total_points"])

	// One-time use: replay of the same session id is a 400
	resp = doRequest(t, app, "POST", "/games", "alice", fiber.Map{
		"game_id": sessionID, "score": 100, "time_remaining": 60, "matches_found": 1,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_OR_EXPIRED_SESSION", decodeBody(t, resp)["code"])
}

func TestSubmit_OwnershipMismatchIs403(t *testing.T) {
	app, clock := newTestApp(t)

	resp := doRequest(t, app, "POST", "/games/start", "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	sessionID := decodeBody(t, resp)["session_id"].(string)

	clock.Advance(20 * time.Second)
	resp = doRequest(t, app, "POST", "/games", "mallory", fiber.Map{
		"game_id": sessionID, "score": 100, "time_remaining": 60, "matches_found": 1,
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "SESSION_OWNERSHIP_MISMATCH", decodeBody(t, resp)["code"])
}

func TestSubmit_CooldownIs429WithRetryAfter(t *testing.T) {
	app, clock := newTestApp(t)

	var ids []string
	for i := 0; i < 2; i++ {
		resp := doRequest(t, app, "POST", "/games/start", "alice", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		ids = append(ids, decodeBody(t, resp)["session_id"].(string))
	}

	clock.Advance(20 * time.Second)
	resp := doRequest(t, app, "POST", "/games", "alice", fiber.Map{
		"game_id": ids[0], "score": 100, "time_remaining": 60, "matches_found": 1,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doRequest(t, app, "POST", "/games", "alice", fiber.Map{
		"game_id": ids[1], "score": 100, "time_remaining": 60, "matches_found": 1,
	})
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "SUBMISSION_TOO_FREQUENT", body["code"])
	assert.Equal(t, float64(5), body["retry_after_seconds"])
}

func TestStart_TooManySessionsIs429(t *testing.T) {
	app, _ := newTestApp(t)

	for i := 0; i < 3; i++ {
		resp := doRequest(t, app, "POST", "/games/start", "alice", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp := doRequest(t, app, "POST", "/games/start", "alice", nil)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "TOO_MANY_ACTIVE_SESSIONS", decodeBody(t, resp)["code"])
}

func TestSubmit_MalformedBodyIs400(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/games", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Authorization", "Bearer "+testGatewayToken)
	req.Header.Set("X-User-ID", "alice")
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_GAME_DATA", decodeBody(t, resp)["code"])
}

func TestHealthz(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, "GET", "/healthz", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
