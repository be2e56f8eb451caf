package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/access-gate/internal/api/http"
	"github.com/spec-kit/access-gate/internal/api/http/handlers"
	"github.com/spec-kit/access-gate/internal/auth"
	"github.com/spec-kit/access-gate/internal/authz"
	"github.com/spec-kit/access-gate/internal/config"
	"github.com/spec-kit/access-gate/internal/events"
	"github.com/spec-kit/access-gate/internal/observability"
	"github.com/spec-kit/access-gate/internal/persistence"
	"github.com/spec-kit/access-gate/internal/repository"
	"github.com/spec-kit/access-gate/internal/service"
	"github.com/spec-kit/access-gate/internal/worker"
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

	pool := pg.PoolHandle()
	identityRepo := repository.NewIdentityRepository(pool)
	scanEventRepo := repository.NewScanEventRepository(pool)
	membershipRepo := repository.NewRoleMembershipRepository(pool)

	policy := authz.NewEngine(membershipRepo)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	identityService := service.NewIdentityService(service.IdentityDependencies{
		IdentityRepo:       identityRepo,
		RoleMembershipRepo: membershipRepo,
		Policy:             policy,
		Dispatcher:         dispatcher,
	})
	credentialService := service.NewCredentialService(service.CredentialDependencies{
		IdentityRepo: identityRepo,
		Policy:       policy,
		Dispatcher:   dispatcher,
	})
	scanService := service.NewScanService(service.ScanDependencies{
		IdentityRepo:       identityRepo,
		ScanEventRepo:      scanEventRepo,
		RoleMembershipRepo: membershipRepo,
		Policy:             policy,
		Dispatcher:         dispatcher,
		Metrics:            metrics,
	})
	analyticsService := service.NewAnalyticsService(scanEventRepo, policy)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, identityRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Identities:     handlers.NewIdentitiesHandler(identityService, credentialService, scanService, cfg.Auth.ProvisioningKey),
		Scans:          handlers.NewScansHandler(scanService),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService),
		Tokens:         handlers.NewTokensHandler(tokenManager, cfg.Auth.ProvisioningKey),
		AuthMiddleware: authMiddleware,
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
