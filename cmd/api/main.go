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

	"github.com/spec-kit/helpdesk-service/internal/ai"
	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/crm"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/realtime"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/visibility"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

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

	natsConn, err := persistence.NewNATS(cfg.NATS, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect nats", zap.Error(err))
	}
	defer natsConn.Close()

	var blobs persistence.BlobStore
	s3Store, err := persistence.NewS3Store(cfg.S3, logger)
	if err != nil {
		logger.Fatal("failed to init s3", zap.Error(err))
	}
	if s3Store != nil {
		blobs = s3Store
	}

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	permissionRepo := repository.NewPermissionRepository(pool)
	slaRepo := repository.NewSLAPolicyRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	questionRepo := repository.NewPrefilledQuestionRepository(pool)
	crmRepo := repository.NewCRMTicketRepository(pool)
	chatRepo := repository.NewChatRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)

	grants := authz.NewCachedGrantLookup(permissionRepo, redis.Client, cfg.Authz.GrantCacheTTL, logger)
	checker := authz.NewChecker(grants, logger, metrics)
	ticketVisibility := visibility.NewFilter(visibility.Config{
		StaleAfter:   cfg.Tickets.StaleAfter,
		DefaultLimit: cfg.Tickets.DefaultPageSize,
		MaxLimit:     cfg.Tickets.MaxPageSize,
	}, ticketRepo, checker)

	var broker realtime.Broker = realtime.NewMemoryBroker()
	if natsConn.Conn != nil {
		broker = realtime.NewNATSBroker(natsConn.Conn, logger)
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartEventConsumers(dispatcher, notificationService, realtime.NewForwarder(broker, logger))

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		ProfileRepo: profileRepo,
		Logger:      logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), profileRepo)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		CommentRepo:    commentRepo,
		AttachmentRepo: attachmentRepo,
		HistoryRepo:    historyRepo,
		ProfileRepo:    profileRepo,
		DepartmentRepo: departmentRepo,
		TemplateRepo:   templateRepo,
		SLARepo:        slaRepo,
		Authz:          checker,
		Visibility:     ticketVisibility,
		Blobs:          blobs,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		ProfileRepo:    profileRepo,
		DepartmentRepo: departmentRepo,
		Authz:          checker,
		Logger:         logger,
	})
	departmentService := service.NewDepartmentService(service.DepartmentDependencies{
		DepartmentRepo: departmentRepo,
		ProfileRepo:    profileRepo,
		Authz:          checker,
	})
	adminService := service.NewAdminConfigService(service.AdminConfigDependencies{
		SLARepo:        slaRepo,
		TemplateRepo:   templateRepo,
		QuestionRepo:   questionRepo,
		DepartmentRepo: departmentRepo,
		Authz:          checker,
	})
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:    taskRepo,
		TicketRepo:  ticketRepo,
		ProfileRepo: profileRepo,
		Authz:       checker,
	})

	var assistant ai.Assistant
	if cfg.AI.Configured() {
		assistant = ai.NewOpenAIClient(cfg.AI, logger)
	} else {
		logger.Info("chat assistant not configured, visitors get the fallback reply")
	}
	chatService := service.NewChatService(service.ChatDependencies{
		ChatRepo:  chatRepo,
		Authz:     checker,
		Assistant: assistant,
		Broker:    broker,
		Logger:    logger,
	})

	var crmHandler *handlers.CRMHandler
	var scheduler *crm.Scheduler
	if cfg.CRM.Configured() {
		syncService := crm.NewSyncService(crm.Dependencies{
			Client:      crm.NewHTTPClient(cfg.CRM),
			Mirror:      crmRepo,
			Blobs:       blobs,
			Permissions: checker,
			Metrics:     metrics,
			Logger:      logger,
			PageSize:    cfg.CRM.PageSize,
		})
		crmHandler = handlers.NewCRMHandler(syncService, checker)
		if cfg.CRM.SyncEnabled {
			scheduler = crm.NewScheduler(syncService, redis.Client, cfg.CRM.SyncLockTTL, logger)
			if err := scheduler.Register(cfg.CRM.SyncSchedule); err != nil {
				logger.Fatal("failed to schedule crm sync", zap.Error(err))
			}
			scheduler.Start()
		}
	} else {
		logger.Info("crm integration not configured")
	}

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: 25 * 1024 * 1024,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Users:          handlers.NewUsersHandler(userService),
		Departments:    handlers.NewDepartmentsHandler(departmentService),
		AdminConfig:    handlers.NewAdminConfigHandler(adminService),
		Tasks:          handlers.NewTasksHandler(taskService),
		Chat:           handlers.NewChatHandler(chatService),
		CRM:            crmHandler,
		Streams:        handlers.NewStreamsHandler(ticketService, chatService, realtime.NewStream(broker, logger)),
		Metrics:        metrics,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
