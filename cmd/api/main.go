package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/assistant"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
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

	kb, err := assistant.LoadKnowledgeBaseOrDefault(cfg.Chat.KnowledgeBasePath)
	if err != nil {
		logger.Fatal("failed to load knowledge base", zap.String("path", cfg.Chat.KnowledgeBasePath), zap.Error(err))
	}
	logger.Info("knowledge base loaded", zap.Int("topics", len(kb.Topics())))

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	notifications := worker.NewNotificationWorker(
		service.NewNotificationService(logger, cfg.Notification), logger, 256)
	notifications.Register(dispatcher)
	notifications.Start(ctx)

	userRepo := repository.NewUserRepository(pg.Pool)
	staffRepo := repository.NewStaffRepository(pg.Pool)
	ticketRepo := repository.NewTicketRepository(pg.Pool)
	activityRepo := repository.NewActivityRepository(pg.Pool)
	store := repository.NewRedisConversationStore(redis.Client, repository.StoreOptions{
		KeyPrefix:    cfg.Chat.KeyPrefix,
		StateTTL:     cfg.Chat.StateTTL(),
		LockTTL:      cfg.Chat.LockTTL(),
		LockWait:     cfg.Chat.LockWait(),
		HistoryLimit: cfg.Chat.HistoryLimit,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.App.Name, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:  userRepo,
		StaffRepo: staffRepo,
		Tokens:    tokens,
	})
	activityService := service.NewActivityService(activityRepo, logger)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	chatService := service.NewChatService(service.ChatDependencies{
		Assistant:  assistant.New(kb),
		Store:      store,
		Tickets:    ticketService,
		Activity:   activityService,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Users:          handlers.NewUsersHandler(authService),
		Staff:          handlers.NewStaffHandler(authService, activityService),
		Chat:           handlers.NewChatHandler(chatService, logger),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Metrics:        metrics.Handler(),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, userRepo, staffRepo),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	notifications.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
