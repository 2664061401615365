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

	httptransport "github.com/spec-kit/repairdesk/internal/api/http"
	"github.com/spec-kit/repairdesk/internal/api/http/handlers"
	"github.com/spec-kit/repairdesk/internal/auth"
	"github.com/spec-kit/repairdesk/internal/config"
	"github.com/spec-kit/repairdesk/internal/events"
	"github.com/spec-kit/repairdesk/internal/observability"
	"github.com/spec-kit/repairdesk/internal/persistence"
	"github.com/spec-kit/repairdesk/internal/realtime"
	"github.com/spec-kit/repairdesk/internal/repository"
	"github.com/spec-kit/repairdesk/internal/sequence"
	"github.com/spec-kit/repairdesk/internal/service"
	"github.com/spec-kit/repairdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	broker := realtime.NewBroker(logger, metrics)
	if cfg.Broker.RelayEnabled {
		relay := redis.Relay(cfg.Broker.RelayChannel, logger)
		broker.UseRelay(relay)
		go worker.RunRelay(ctx, relay, broker.Deliver, logger)
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	requestRepo := repository.NewServiceRequestRepository(pool)
	eventRepo := repository.NewServiceRequestEventRepository(pool)
	jobRepo := repository.NewJobTicketRepository(pool)
	pickupRepo := repository.NewPickupScheduleRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)
	generator := sequence.NewGenerator(cfg.Workflow.SequenceMaxAttempts, logger)

	requestService := service.NewServiceRequestService(service.ServiceRequestDependencies{
		RequestRepo:    requestRepo,
		EventRepo:      eventRepo,
		JobRepo:        jobRepo,
		UserRepo:       userRepo,
		Generator:      generator,
		Materializer:   service.NewJobMaterializer(jobRepo, generator, time.Now),
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
		MediaRetention: cfg.Workflow.MediaRetention(),
	})
	quoteService := service.NewQuoteService(requestService, cfg.Workflow.QuoteValidity(), logger)
	pickupService := service.NewPickupService(pickupRepo, requestService, logger)
	jobService := service.NewJobService(jobRepo, staffRepo, logger)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:       userRepo,
		StaffRepo:      staffRepo,
		ServiceRequest: requestService,
		Logger:         logger,
	})
	staffService := service.NewStaffService(*cfg, staffRepo)
	notificationService := service.NewNotificationService(dispatcher, broker, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	if err := authService.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPass); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	maintenance, err := worker.NewMaintenanceWorker(logger, time.Minute,
		worker.MaintenanceJob{Name: "quote_expiry", Schedule: cfg.Workflow.QuoteExpirySchedule, Run: quoteService.ExpireStale},
		worker.MaintenanceJob{Name: "media_purge", Schedule: cfg.Workflow.MediaPurgeSchedule, Run: requestService.PurgeExpiredMedia},
	)
	if err != nil {
		logger.Fatal("failed to schedule maintenance", zap.Error(err))
	}
	maintenance.Start()
	defer maintenance.Stop()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, staffRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:        cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.App.AllowedOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics, broker),
		ServiceRequests: handlers.NewServiceRequestsHandler(requestService),
		Quotes:          handlers.NewQuotesHandler(quoteService),
		Pickups:         handlers.NewPickupsHandler(pickupService),
		Jobs:            handlers.NewJobsHandler(jobService),
		Streams:         handlers.NewStreamsHandler(ctx, broker, cfg.Broker.BufferSize, cfg.Broker.Heartbeat(), logger),
		Customers:       handlers.NewCustomersHandler(authService),
		Staff:           handlers.NewStaffHandler(authService, staffService),
		AuthMiddleware:  authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	// Open event streams only end once the server context is gone.
	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
