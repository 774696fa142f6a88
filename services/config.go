package services

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config carries every tunable of the session/score pipeline. Everything has
// a sane default; LoadConfig never fails — an unparseable value logs a
// warning and keeps the default.
type Config struct {
	// Generic per-IP request limiter in front of the whole API.
	RateLimitWindow  time.Duration // RATE_LIMIT_WINDOW (ms)
	RateLimitMax     int           // RATE_LIMIT_MAX (requests per window)
	RateLimitMaxKeys int           // RATE_LIMIT_MAX_KEYS (eviction cap)

	// Game timing and score bounds.
	GameDurationSeconds    int // GAME_DURATION_SECONDS
	MinGameDurationSeconds int // MIN_GAME_DURATION_SECONDS
	MaxScore               int // MAX_SCORE
	MaxMatches             int // MAX_MATCHES

	// Session lifecycle.
	SessionExpiry            time.Duration // SESSION_EXPIRY_MS
	MaxActiveSessionsPerUser int           // MAX_ACTIVE_SESSIONS_PER_USER

	// Submission throttling.
	UserSubmissionCooldown time.Duration // USER_SUBMISSION_COOLDOWN_MS
	MaxGamesPerIPPerHour   int           // MAX_GAMES_PER_IP_PER_HOUR

	// Leaderboard snapshot export (0 interval disables the worker).
	LeaderboardExportInterval time.Duration // LEADERBOARD_EXPORT_INTERVAL (s)
	LeaderboardExportLimit    int           // LEADERBOARD_EXPORT_LIMIT
}

func DefaultConfig() Config {
	return Config{
		RateLimitWindow:  60 * time.Second,
		RateLimitMax:     100,
		RateLimitMaxKeys: 10_000,

		GameDurationSeconds:    90,
		MinGameDurationSeconds: 15,
		MaxScore:               800, // 8 matches × 100
		MaxMatches:             8,

		SessionExpiry:            150 * time.Second,
		MaxActiveSessionsPerUser: 3,

		UserSubmissionCooldown: 5 * time.Second,
		MaxGamesPerIPPerHour:   100,

		LeaderboardExportInterval: 5 * time.Minute,
		LeaderboardExportLimit:    100,
	}
}

// LoadConfig reads the tunables from the environment on top of the defaults.
func LoadConfig() Config {
	cfg := DefaultConfig()

	cfg.RateLimitWindow = envMillis("RATE_LIMIT_WINDOW", cfg.RateLimitWindow)
	cfg.RateLimitMax = envInt("RATE_LIMIT_MAX", cfg.RateLimitMax)
	cfg.RateLimitMaxKeys = envInt("RATE_LIMIT_MAX_KEYS", cfg.RateLimitMaxKeys)

	cfg.GameDurationSeconds = envInt("GAME_DURATION_SECONDS", cfg.GameDurationSeconds)
	cfg.MinGameDurationSeconds = envInt("MIN_GAME_DURATION_SECONDS", cfg.MinGameDurationSeconds)
	cfg.MaxScore = envInt("MAX_SCORE", cfg.MaxScore)
	cfg.MaxMatches = envInt("MAX_MATCHES", cfg.MaxMatches)

	cfg.SessionExpiry = envMillis("SESSION_EXPIRY_MS", cfg.SessionExpiry)
	cfg.MaxActiveSessionsPerUser = envInt("MAX_ACTIVE_SESSIONS_PER_USER", cfg.MaxActiveSessionsPerUser)

	cfg.UserSubmissionCooldown = envMillis("USER_SUBMISSION_COOLDOWN_MS", cfg.UserSubmissionCooldown)
	cfg.MaxGamesPerIPPerHour = envInt("MAX_GAMES_PER_IP_PER_HOUR", cfg.MaxGamesPerIPPerHour)

	cfg.LeaderboardExportInterval = envSeconds("LEADERBOARD_EXPORT_INTERVAL", cfg.LeaderboardExportInterval)
	cfg.LeaderboardExportLimit = envInt("LEADERBOARD_EXPORT_LIMIT", cfg.LeaderboardExportLimit)

	return cfg
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("⚠️  %s=%q is not a non-negative integer, using default %d", name, raw, fallback)
		return fallback
	}
	return n
}

func envMillis(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 0 {
		log.Printf("⚠️  %s=%q is not a millisecond count, using default %s", name, raw, fallback)
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func envSeconds(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	s, err := strconv.Atoi(raw)
	if err != nil || s < 0 {
		log.Printf("⚠️  %s=%q is not a second count, using default %s", name, raw, fallback)
		return fallback
	}
	return time.Duration(s) * time.Second
}
