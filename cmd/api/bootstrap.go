package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// engine holds every wired component of one process.
type engine struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
	redis  *persistence.Redis

	store         repository.Store
	metrics       *observability.Metrics
	dispatcher    events.Dispatcher
	forwarder     *events.StreamForwarder
	assignment    *service.AssignmentService
	tickets       *service.TicketService
	autoClose     *service.AutoCloseService
	notifications *service.NotificationService
}

func bootstrap(ctx context.Context, demoCatalog bool) (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	var store repository.Store
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		store = repository.NewStore(pg.PoolHandle())
	} else {
		mem := memory.NewStore()
		if demoCatalog {
			seedDemoCatalog(mem)
			logger.Info("demo catalog seeded")
		}
		store = mem
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	loads := cache.NewLoadCache(redis.Handle(), store.Tickets(), cfg.Engine.LoadCacheTTL(), logger)

	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		Store:              store,
		Loads:              loads,
		UnassignedSentinel: cfg.Engine.UnassignedSentinel,
		Metrics:            metrics,
		Logger:             logger,
	})
	return &engine{
		cfg:        cfg,
		logger:     logger,
		pg:         pg,
		redis:      redis,
		store:      store,
		metrics:    metrics,
		dispatcher: dispatcher,
		forwarder:  events.NewStreamForwarder(redis.Handle(), cfg.Notification.Stream, logger),
		assignment: assignment,
		tickets: service.NewTicketService(service.TicketDependencies{
			Store:      store,
			Assignment: assignment,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
			Engine:     cfg.Engine,
		}),
		autoClose: service.NewAutoCloseService(service.AutoCloseDependencies{
			Store:      store,
			Assignment: assignment,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
			Engine:     cfg.Engine,
		}),
		notifications: service.NewNotificationService(dispatcher, logger, cfg.Notification),
	}, nil
}

// Close releases connections and flushes the logger.
func (e *engine) Close() {
	e.redis.Close()
	e.pg.Close()
	_ = e.logger.Sync()
}
