package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/checkin-service/internal/api/http"
	"github.com/spec-kit/checkin-service/internal/api/http/handlers"
	"github.com/spec-kit/checkin-service/internal/auth"
	"github.com/spec-kit/checkin-service/internal/config"
	"github.com/spec-kit/checkin-service/internal/events"
	"github.com/spec-kit/checkin-service/internal/observability"
	"github.com/spec-kit/checkin-service/internal/persistence"
	"github.com/spec-kit/checkin-service/internal/realtime"
	"github.com/spec-kit/checkin-service/internal/repository"
	"github.com/spec-kit/checkin-service/internal/service"
	"github.com/spec-kit/checkin-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	identityRepo := repository.NewIdentityRepository(pool)
	checkRepo := repository.NewCheckRepository(pool)

	authService := service.NewAuthService(*cfg, identityRepo)
	tokenManager := authService.TokenManager()

	redemptionService := service.NewRedemptionService(cfg.Presence, service.RedemptionDependencies{
		IdentityRepo: identityRepo,
		CheckRepo:    checkRepo,
		ReplayGuard:  persistence.NewReplayGuard(redis),
		Dispatcher:   dispatcher,
		TokenManager: tokenManager,
		Logger:       logger,
		Metrics:      metrics,
	})
	identityService := service.NewIdentityService(identityRepo, checkRepo)

	authMiddleware := auth.NewAuthMiddleware(tokenManager, identityRepo, cfg.Auth.CookieName)

	hub := realtime.NewHub(logger)
	sessions := realtime.NewSessionManager(hub, tokenManager, cfg.Presence, logger, metrics)
	bridge := realtime.NewBridge(hub, sessions, dispatcher, cfg.Presence, logger)
	worker.StartRealtimeWorker(bridge)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Checkins:       handlers.NewCheckinsHandler(redemptionService, dispatcher),
		Identities:     handlers.NewIdentitiesHandler(identityService),
		AuthMiddleware: authMiddleware,
		SocketUpgrade:  realtime.UpgradeMiddleware(authMiddleware),
		SocketHandler:  realtime.Handler(hub, sessions, logger, metrics),
		Metrics:        metrics.Handler(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
