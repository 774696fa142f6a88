// handlers/game.go
package handlers

import (
	"memory-game-server/middleware"
	"memory-game-server/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGameRoutes(app *fiber.App, gameService *services.GameSessionService, scoreService *services.ScoreService) {
	// 🔓 Gateway-only routes — no user context required
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/leaderboard", scoreService.GetLeaderboardHandler)

	// 🔐 Secured routes — require user context (X-User-ID), enforced via middleware
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/games/start", gameService.StartGame)
	secured.Post("/games", gameService.SubmitGame)
	secured.Get("/users/:id/stats", scoreService.GetUserStatsHandler)
	secured.Get("/users/:id/games", scoreService.GetUserGamesHandler)
}
