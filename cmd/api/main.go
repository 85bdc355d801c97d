package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/Vijay-Anand-VJ/helpdesk-service/internal/api/http"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/api/http/handlers"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/auth"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/config"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/events"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/observability"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/persistence"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/repository"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/scheduler"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/service"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/worker"
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
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	noteRepo := repository.NewNoteRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	activityRepo := repository.NewActivityLogRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		ActivityLogRepo:   activityRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:       ticketRepo,
		UserRepo:         userRepo,
		NotificationRepo: notificationRepo,
		Dispatcher:       dispatcher,
	})
	noteService := service.NewNoteService(ticketRepo, noteRepo, dispatcher)
	notificationService := service.NewNotificationService(notificationRepo, dispatcher, logger, cfg.Notification)
	userService := service.NewUserService(userRepo, activityRepo)
	reportService := service.NewReportService(ticketRepo)

	worker.StartNotificationWorker(notificationService)

	slaScheduler := scheduler.New(scheduler.Dependencies{
		TicketRepo:       ticketRepo,
		NoteRepo:         noteRepo,
		NotificationRepo: notificationRepo,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
		Locker:           redis,
		LockTTL:          cfg.SLA.ScanLockTTL(),
	})
	if cfg.SLA.Enabled {
		if err := slaScheduler.Start(cfg.SLA.ScanInterval()); err != nil {
			logger.Fatal("failed to start sla scheduler", zap.Error(err))
		}
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Notes:          handlers.NewNotesHandler(noteService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Reports:        handlers.NewReportsHandler(reportService),
		Admin:          handlers.NewAdminHandler(userService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	slaScheduler.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
