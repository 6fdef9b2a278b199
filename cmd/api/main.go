package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/hub"
	"github.com/spec-kit/helpdesk-service/internal/mailer"
	"github.com/spec-kit/helpdesk-service/internal/notifier"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
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

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	emailLogRepo := repository.NewEmailLogRepository(pool)

	ticketCache := cache.NewTicketCache(cache.NewRedisStore(rdb.Client), cfg.Cache.TTL())

	mailQueue := mailer.NewRedisQueue(rdb.Client, cfg.Mailer.QueueKey, cfg.Mailer.RetryKey, logger)
	composer := mailer.NewComposer()
	ledger := mailer.NewLedger(emailLogRepo, mailQueue, composer, logger)
	retryPolicy := mailer.RetryPolicy{
		MaxAttempts: cfg.Mailer.MaxAttempts,
		Backoff:     cfg.Mailer.RetryBackoff(),
	}
	dispatcher := mailer.NewDispatcher(
		emailLogRepo,
		mailQueue,
		mailer.NewSMTPTransport(cfg.SMTP),
		retryPolicy,
		cfg.Mailer.Workers,
		logger,
		metrics,
	)

	liveHub := hub.NewHub(logger, metrics)
	pushNotifier := notifier.NewNotifier(liveHub, logger)

	sink := events.NewFanoutSink(userRepo, ticketCache, ledger, pushNotifier, logger)
	detector := events.NewDetector(sink)

	authService := service.NewAuthService(cfg.Auth, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		UserRepo:    userRepo,
		Detector:    detector,
		Cache:       ticketCache,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	go worker.StartMailWorker(ctx, dispatcher, mailQueue, cfg.Mailer.DrainInterval())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb, mailQueue),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, ticketCache),
		EmailLogs:      handlers.NewEmailLogsHandler(ledger),
		AuthMiddleware: authMiddleware,
		Notifications:  hub.Handler(liveHub, authService.TokenManager(), userRepo, logger),
		UpgradeGate:    hub.UpgradeGate(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = app.ShutdownWithContext(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
