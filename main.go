package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"memory-game-server/handlers"
	"memory-game-server/middleware"
	"memory-game-server/models"
	"memory-game-server/services"
	"memory-game-server/utils"
	"memory-game-server/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		AppName: "memory-game-server",
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	gatewayToken := os.Getenv("GAME_SERVICE_TOKEN")
	if gatewayToken == "" {
		log.Fatal("❌ GAME_SERVICE_TOKEN is not set — service cannot authenticate Gateway")
	}
	app.Use(middleware.GatewayAuthMiddleware(gatewayToken))

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(&models.GameResult{}); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	cfg := services.LoadConfig()
	clock := clockwork.NewRealClock()

	limiter := services.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow, cfg.RateLimitMaxKeys, clock)
	sessions := services.NewSessionStore(cfg.MaxActiveSessionsPerUser, cfg.SessionExpiry, clock)
	guard := services.NewSubmissionGuard(cfg.UserSubmissionCooldown, cfg.MaxGamesPerIPPerHour, clock)
	scoreService := services.NewScoreService(db)
	gameService := services.NewGameSessionService(cfg, sessions, guard, scoreService, clock)

	// Generic per-IP request limiter sits in front of everything
	app.Use(middleware.RateLimitMiddleware(limiter))

	sched, err := gameService.StartMaintenanceScheduler(limiter)
	if err != nil {
		log.Fatal("failed to start maintenance scheduler:", err)
	}
	defer func() { _ = sched.Shutdown() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Leaderboard snapshot export → R2 CDN (optional)
	if utils.R2Configured() && cfg.LeaderboardExportInterval > 0 {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		exporter := workers.NewLeaderboardExporter(scoreService, cfg.LeaderboardExportLimit, cfg.LeaderboardExportInterval)
		go exporter.Run(ctx)
		log.Printf("✅ Leaderboard export to R2 running (every %s)", cfg.LeaderboardExportInterval)
	} else {
		log.Println("➡️  Leaderboard export disabled (R2 not configured or interval = 0)")
	}

	handlers.SetupGameRoutes(app, gameService, scoreService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5200"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)
	log.Printf("✅ Game config: duration=%ds min=%ds expiry=%s max_sessions=%d cooldown=%s ip_quota=%d/h",
		cfg.GameDurationSeconds, cfg.MinGameDurationSeconds, cfg.SessionExpiry,
		cfg.MaxActiveSessionsPerUser, cfg.UserSubmissionCooldown, cfg.MaxGamesPerIPPerHour)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
