package services

import (
	"time"

	"memory-game-server/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScoreRecordStore persists finalized game results and serves the aggregate
// read paths. The session pipeline only ever hands it sanitized records.
type ScoreRecordStore interface {
	CreateGame(result *models.GameResult) error
	GetLeaderboard(limit int) ([]LeaderboardRow, error)
	GetUserStats(userID string) (*UserStats, error)
	GetUserGames(userID string, limit int) ([]models.GameResult, error)
}

// LeaderboardRow is one ranked per-user aggregate.
type LeaderboardRow struct {
	UserID      string    `json:"user_id"`
	BestScore   int       `json:"best_score"` // highest total_points
	GamesPlayed int64     `json:"games_played"`
	LastPlayed  time.Time `json:"last_played"`
	Rank        int       `json:"rank" gorm:"-"`
}

// UserStats aggregates one user's play history.
type UserStats struct {
	UserID      string     `json:"user_id"`
	GamesPlayed int64      `json:"games_played"`
	BestScore   int        `json:"best_score"`
	TotalPoints int64      `json:"total_points"` // lifetime sum
	LastPlayed  *time.Time `json:"last_played,omitempty"`
}

type ScoreService struct {
	DB *gorm.DB
}

func NewScoreService(db *gorm.DB) *ScoreService {
	return &ScoreService{DB: db}
}

func (s *ScoreService) CreateGame(result *models.GameResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	return s.DB.Create(result).Error
}

func (s *ScoreService) GetLeaderboard(limit int) ([]LeaderboardRow, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	var rows []LeaderboardRow
	err := s.DB.Model(&models.GameResult{}).
		Select("user_id, MAX(total_points) AS best_score, COUNT(*) AS games_played, MAX(completed_at) AS last_played").
		Group("user_id").
		Order("best_score DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

func (s *ScoreService) GetUserStats(userID string) (*UserStats, error) {
	var stats UserStats
	err := s.DB.Model(&models.GameResult{}).
		Select("COUNT(*) AS games_played, COALESCE(MAX(total_points), 0) AS best_score, COALESCE(SUM(total_points), 0) AS total_points, MAX(completed_at) AS last_played").
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	stats.UserID = userID
	return &stats, nil
}

func (s *ScoreService) GetUserGames(userID string, limit int) ([]models.GameResult, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var games []models.GameResult
	err := s.DB.Where("user_id = ?", userID).
		Order("completed_at DESC").
		Limit(limit).
		Find(&games).Error
	return games, err
}

// GetLeaderboardHandler handles GET /leaderboard?limit=N
func (s *ScoreService) GetLeaderboardHandler(c *fiber.Ctx) error {
	rows, err := s.GetLeaderboard(c.QueryInt("limit", 100))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}
	if rows == nil {
		rows = []LeaderboardRow{}
	}
	return c.JSON(rows)
}

// GetUserStatsHandler handles GET /users/:id/stats
func (s *ScoreService) GetUserStatsHandler(c *fiber.Ctx) error {
	stats, err := s.GetUserStats(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch stats"})
	}
	return c.JSON(stats)
}

// GetUserGamesHandler handles GET /users/:id/games?limit=N
func (s *ScoreService) GetUserGamesHandler(c *fiber.Ctx) error {
	games, err := s.GetUserGames(c.Params("id"), c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch games"})
	}
	if games == nil {
		games = []models.GameResult{}
	}
	return c.JSON(games)
}
