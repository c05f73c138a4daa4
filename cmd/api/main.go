package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pos-inventory/config"
	"go-pos-inventory/internal/cache"
	"go-pos-inventory/internal/handler"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/internal/service"
	"go-pos-inventory/internal/ws"
	"go-pos-inventory/pkg/database"
	"go-pos-inventory/pkg/jwt"
	applogger "go-pos-inventory/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	cfg := config.LoadEnv()

	zlog, err := applogger.New(cfg.Logger, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zlog.Fatal("database migration failed", zap.Error(err))
	}

	// 3. Report cache (optional)
	var reportCache service.ReportCache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		client, err := cache.NewRedisClient(pingCtx, cfg.Redis)
		cancel()
		if err != nil {
			zlog.Warn("redis unavailable, report cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			defer client.Close()
			reportCache = cache.NewReportCache(client, cfg.Redis.ReportTTL, zlog.Named("cache"))
		}
	}

	// 4. Setup WebSocket Hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := ws.NewHub(zlog.Named("ws"))
	go wsHub.Run(hubCtx)

	// 5. Dependency Injection (Wiring Layers)
	inventoryRepo := repository.NewInventoryRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	userRepo := repository.NewUserRepo(db)
	reportRepo, err := repository.NewReportRepo(db)
	if err != nil {
		zlog.Fatal("report repository init failed", zap.Error(err))
	}

	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)

	authService := service.NewAuthService(userRepo, tokens, zlog.Named("auth"))
	invService := service.NewInventoryService(inventoryRepo, reportCache, wsHub, zlog.Named("inventory"))
	txService := service.NewTransactionService(db, inventoryRepo, txRepo, reportCache, wsHub, zlog.Named("transactions"))
	reportService := service.NewReportService(reportRepo, reportCache, zlog.Named("reports"))

	httpLog := zlog.Named("http")
	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authService, !cfg.IsDevelopment(), httpLog),
		Inventory:    handler.NewInventoryHandler(invService, httpLog),
		Transactions: handler.NewTransactionHandler(txService, httpLog),
		Reports:      handler.NewReportHandler(reportService, httpLog),
		WS:           handler.NewWSHandler(wsHub, httpLog),
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "POS Inventory v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 7. Routes
	handler.SetupRoutes(app, handlers, authService)

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			zlog.Panic("server stopped", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
	stopHub()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	zlog.Info("server exited")
}
