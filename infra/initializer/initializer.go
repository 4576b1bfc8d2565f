// Package initializer builds the infrastructure behind the services from
// configuration.
package initializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/finboard/infra"
	"github.com/amirasaad/finboard/infra/amqp"
	"github.com/amirasaad/finboard/infra/cache"
	infra_eventbus "github.com/amirasaad/finboard/infra/eventbus"
	"github.com/amirasaad/finboard/infra/metrics"
	"github.com/amirasaad/finboard/infra/repository/memory"
	"github.com/amirasaad/finboard/pkg/app"
	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/domain/events"
	"github.com/amirasaad/finboard/pkg/eventbus"
	"github.com/amirasaad/finboard/pkg/service/notification"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// amqpConnectAttempts bounds the broker dial retries at startup.
const amqpConnectAttempts = 5

// Dependencies is app.Deps plus the handles the process owns.
type Dependencies struct {
	*app.Deps
	// DB is nil with the memory driver.
	DB      *gorm.DB
	Metrics *metrics.Metrics

	closers []func() error
}

// Close releases every connection in reverse order of opening.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

func (d *Dependencies) onClose(fn func() error) {
	d.closers = append(d.closers, fn)
}

// InitializeDependencies initializes all the application dependencies
func InitializeDependencies(ctx context.Context, cfg *config.App) (_ *Dependencies, err error) {
	logger := setupLogger(cfg.Log)
	deps := &Dependencies{
		Deps:    &app.Deps{Logger: logger},
		Metrics: metrics.New(),
	}
	defer func() {
		if err != nil {
			_ = deps.Close()
		}
	}()
	deps.Observer = deps.Metrics

	if err = initStore(deps, cfg, logger); err != nil {
		return nil, err
	}

	var client *redis.Client
	if cfg.Cache.Driver == "redis" || cfg.EventBus.Driver == "redis" {
		var rerr error
		client, rerr = newRedisClient(ctx, cfg.Redis)
		switch {
		case rerr != nil && cfg.Cache.Driver == "redis":
			return nil, fmt.Errorf("failed to connect to Redis: %w", rerr)
		case rerr != nil:
			logger.Warn("Redis unavailable, event bus stays in memory", "error", rerr)
		default:
			deps.onClose(client.Close)
		}
	}

	initCache(deps, cfg, client, logger)

	bus, closeBus := initEventBus(ctx, cfg, client, logger)
	deps.EventBus = bus
	if closeBus != nil {
		deps.onClose(closeBus)
	}

	deps.Notifiers = []notification.Notifier{
		notification.NewLogNotifier(logger),
		deps.Metrics.Alerts(),
	}
	if cfg.Notifications.AMQPURL != "" {
		publisher, perr := amqp.NewPublisher(ctx, amqp.Config{
			URL:        cfg.Notifications.AMQPURL,
			Exchange:   cfg.Notifications.Exchange,
			Queue:      cfg.Notifications.Queue,
			RoutingKey: cfg.Notifications.RoutingKey,
		}, amqpConnectAttempts, logger)
		if perr != nil {
			logger.Error("Alert publisher unavailable, alerts are logged only", "error", perr)
		} else {
			deps.Notifiers = append(deps.Notifiers, publisher)
			deps.onClose(publisher.Close)
		}
	}

	logger.Info("Dependencies initialized",
		"db_driver", cfg.DB.Driver,
		"cache_driver", cfg.Cache.Driver,
		"event_bus", fmt.Sprintf("%T", bus),
		"notifiers", len(deps.Notifiers),
	)
	return deps, nil
}

// initStore opens the database and brings its schema up to date. The
// memory driver keeps everything in process.
func initStore(deps *Dependencies, cfg *config.App, logger *slog.Logger) error {
	if cfg.DB.Driver == "memory" {
		deps.Uow = memory.NewUoW(memory.NewStore())
		return nil
	}
	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		deps.onClose(sqlDB.Close)
	}
	if err := infra.Migrate(db, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	deps.DB = db
	deps.Uow = infra.NewGormUoW(db)
	return nil
}

func newRedisClient(ctx context.Context, cfg *config.Redis) (*redis.Client, error) {
	return cache.NewRedisClient(ctx, cfg.URL, cfg.PoolSize, cfg.DialTimeout, cfg.ReadTimeout, cfg.WriteTimeout)
}

// initCache selects the balance cache and session store.
func initCache(deps *Dependencies, cfg *config.App, client *redis.Client, logger *slog.Logger) {
	if cfg.Cache.Driver == "redis" && client != nil {
		deps.BalanceCache = cache.NewRedisBalanceCache(client, cfg.Redis.KeyPrefix, logger)
		deps.Sessions = cache.NewRedisSessionStore(client, cfg.Redis.KeyPrefix)
		return
	}
	balances := cache.NewMemoryBalanceCache()
	sessions := cache.NewMemorySessionStore()
	deps.BalanceCache = balances
	deps.Sessions = sessions
	deps.onClose(balances.Close)
	deps.onClose(sessions.Close)
}

// initEventBus returns the Redis stream bus when one is configured and
// reachable, and the in-memory bus otherwise.
func initEventBus(
	ctx context.Context,
	cfg *config.App,
	client *redis.Client,
	logger *slog.Logger,
) (eventbus.Bus, func() error) {
	if cfg.EventBus.Driver != "redis" || client == nil {
		return infra_eventbus.NewWithMemory(logger), nil
	}
	bus, err := infra_eventbus.NewWithRedis(ctx, client, infra_eventbus.RedisEventBusConfig{
		Stream: cfg.EventBus.Channel,
	}, events.Registry(), logger)
	if err != nil {
		logger.Warn("Failed to create Redis event bus, using memory", "error", err)
		return infra_eventbus.NewWithMemory(logger), nil
	}
	return bus, bus.Close
}
