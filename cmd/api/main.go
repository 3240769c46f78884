package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-parts-ledger/internal/cache"
	"go-parts-ledger/internal/config"
	"go-parts-ledger/internal/handler"
	"go-parts-ledger/internal/lock"
	"go-parts-ledger/internal/middleware"
	"go-parts-ledger/internal/repository"
	"go-parts-ledger/internal/service"
	"go-parts-ledger/internal/ws"
	"go-parts-ledger/pkg/database"
	"go-parts-ledger/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// 1. Load Env
	boot := logger.New("info", os.Stdout)
	config.LoadEnv(boot)
	cfg, err := config.Load()
	if err != nil {
		boot.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, os.Stdout)

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.WithError(err).Fatal("auto-migrate failed")
	}
	store := repository.NewStore(db)

	// 3. Period lock and report cache: Redis when configured, in-process otherwise
	var (
		locker      lock.Locker       = lock.NewLocalLocker(cfg.PeriodLockTTL)
		reportCache cache.ReportCache = cache.NoopReportCache{}
	)
	if cfg.RedisEnabled() {
		rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.LogError(log, "main", "main", "redis unreachable, using in-process lock and no report cache", cfg.RedisAddr, err)
		} else {
			locker = lock.NewRedisLocker(rdb, cfg.PeriodLockTTL, cfg.PeriodLockTTL, log)
			reportCache = cache.NewRedisReportCache(rdb)
			defer rdb.Close()
			log.WithField("addr", cfg.RedisAddr).Info("redis connected")
		}
	}

	// 4. Setup WebSocket Hub
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	wsHub := ws.NewHub(log)
	go wsHub.Run(ctx)

	// 5. Dependency Injection (Wiring Layers)
	svc := handler.Services{
		Inventory: service.NewInventoryService(store, wsHub, log),
		Sales:     service.NewSaleService(store, wsHub, log, cfg.SaleMaxRetries),
		Reports:   service.NewReportService(store, reportCache, wsHub, log),
		Rollover:  service.NewRolloverService(store, locker, reportCache, wsHub, log),
		Ledger:    service.NewLedgerService(store),
	}
	if _, err := svc.Rollover.Initialize(ctx, cfg.LedgerStart); err != nil {
		log.WithError(err).Fatal("ledger initialization failed")
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Parts Ledger v1.0",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(cors.New())

	// 7. Routes
	handler.SetupRoutes(app, svc)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(wsHub.Serve))

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(cfg.Address()); err != nil {
			log.WithError(err).Panic("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	stop()

	log.Info("server exited")
}
