package main

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"

	"taskman/configs"
	"taskman/internal/api"
	"taskman/internal/config"
	"taskman/internal/middleware"
	"taskman/internal/repository"
	"taskman/pkg/database"
	"taskman/pkg/logger"
)

func main() {
	// Inisialisasi logger
	logger.InitLoggers()
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	// Load config
	cfg := configs.LoadConfig()

	// Inisialisasi database
	client := database.ConnectDB(cfg)
	defer client.Disconnect(config.Ctx)
	config.DB = client.Database(cfg.MongoDB)

	logger.SystemLogger.Info("Database Connected")

	// Buat index jika belum ada (keunikan email ditegakkan di sini)
	repository.EnsureIndexes(config.DB)

	// Inisialisasi Redis
	config.RedisClient = database.ConnectRedis(cfg)
	defer config.RedisClient.Close()

	app := fiber.New()

	// Middleware
	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	// Daftarkan route API
	api.RegisterRoutes(app)

	// Route yang tidak cocok mendapat 404 dengan envelope yang sama
	app.Use(middleware.NotFound())

	logger.SystemLogger.Info("Application ready, listening on port " + cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
	}
}
