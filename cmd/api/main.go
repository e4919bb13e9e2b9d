package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/permission"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
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

	var (
		ticketStore repository.TicketStore
		users       repository.UserRepository
	)
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		ticketStore = repository.NewTicketStore(pg.PoolHandle())
		users = repository.NewUserRepository(pg.PoolHandle())
	} else {
		ticketStore = memory.NewTicketStore()
		users = memory.NewUserDirectory()
	}

	if err := ensureBootstrapAdmin(ctx, users, cfg.Auth.BootstrapAdmin, logger); err != nil {
		logger.Fatal("failed to create bootstrap admin", zap.Error(err))
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	dispatcher := events.NewInMemoryDispatcher(logger)
	if redis.Enabled() && cfg.Redis.EventStream != "" {
		events.NewRedisStreamSink(redis.Client, cfg.Redis.EventStream, cfg.Redis.EventStreamMaxLen).Register(dispatcher)
	}

	engine := permission.NewEngine(permission.EngineDependencies{
		Directory:   users,
		TicketStore: ticketStore,
		Logger:      logger,
	})
	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		TicketStore: ticketStore,
		Directory:   users,
		Dispatcher:  dispatcher,
		Logger:      logger,
		LockTimeout: cfg.Workload.WriteLockTimeout(),
	})
	workload := service.NewWorkloadService(service.WorkloadDependencies{
		TicketStore:    ticketStore,
		Directory:      users,
		Lifecycle:      lifecycle,
		Dispatcher:     dispatcher,
		Logger:         logger,
		HelperCapacity: cfg.Workload.HelperCapacity,
	})
	analytics := service.NewAnalyticsService(service.AnalyticsDependencies{
		TicketStore: ticketStore,
		Directory:   users,
	})

	go worker.NewRebalanceWorker(workload, cfg.Workload.RebalanceInterval(), logger).Run(ctx)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 0)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Tickets:        handlers.NewTicketsHandler(engine, lifecycle),
		Workload:       handlers.NewWorkloadHandler(engine, workload),
		Analytics:      handlers.NewAnalyticsHandler(engine, analytics),
		Users:          handlers.NewUsersHandler(users),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Authorizer:     engine,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

// ensureBootstrapAdmin creates identity as an active admin unless it already exists.
func ensureBootstrapAdmin(ctx context.Context, users repository.UserRepository, identity string, logger *zap.Logger) error {
	if identity == "" {
		return nil
	}
	_, err := users.FindByIdentity(ctx, identity)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	admin := &domain.User{Identity: identity, Name: identity, Role: domain.RoleAdmin, Active: true}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	logger.Info("bootstrap admin created", zap.String("identity", admin.Identity))
	return nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
