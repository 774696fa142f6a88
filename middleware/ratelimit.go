// middleware/ratelimit.go
package middleware

import (
	"log"

	"memory-game-server/services"
	"memory-game-server/utils"

	"github.com/gofiber/fiber/v2"
)

// RateLimitMiddleware rejects requests once a client IP exhausts its request
// window. Applied globally, before any route logic.
func RateLimitMiddleware(limiter *services.RateLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := utils.ClientIP(c)
		if !limiter.Allow(ip) {
			log.Printf("🚫 [RATE_LIMIT] %s over the request window on %s", ip, c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests — slow down",
			})
		}
		return c.Next()
	}
}
