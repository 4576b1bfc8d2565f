package app

import (
	"context"
	"log/slog"

	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/eventbus"
	"github.com/amirasaad/finboard/pkg/repository"
	"github.com/amirasaad/finboard/pkg/service/account"
	"github.com/amirasaad/finboard/pkg/service/auth"
	"github.com/amirasaad/finboard/pkg/service/balance"
	"github.com/amirasaad/finboard/pkg/service/notification"
	"github.com/amirasaad/finboard/pkg/service/settings"
	"github.com/amirasaad/finboard/pkg/service/transaction"
)

// Deps contains the infrastructure the services are built on.
type Deps struct {
	Uow          repository.UnitOfWork
	EventBus     eventbus.Bus
	BalanceCache balance.Cache
	Sessions     auth.SessionStore
	Notifiers    []notification.Notifier
	// Observer receives balance fetch timings; nil disables it.
	Observer    balance.Observer
	AuthOptions []auth.Option
	Logger      *slog.Logger
}

type App struct {
	Deps                *Deps
	Config              *config.App
	AuthService         *auth.Service
	AccountService      *account.Service
	BalanceService      *balance.Service
	TransactionService  *transaction.Service
	SettingsService     *settings.Service
	NotificationService *notification.Service

	unsubs []func()
}

// New builds every service, wires the bus subscribers and initializes the
// session provider.
func New(ctx context.Context, deps *Deps, cfg *config.App) (*App, error) {
	authMap := map[string]func() auth.Strategy{
		"jwt": func() auth.Strategy { return auth.NewJWTStrategy(cfg.Auth.Jwt) },
	}
	strategy := authMap["jwt"]()
	if factory, ok := authMap[cfg.Auth.Strategy]; ok {
		strategy = factory()
	}

	app := &App{
		Deps:   deps,
		Config: cfg,
	}
	app.AuthService = auth.New(deps.Uow, strategy, deps.Sessions, deps.EventBus, deps.Logger, deps.AuthOptions...)
	app.AccountService = account.NewService(deps.Uow, deps.EventBus, deps.Logger)
	app.BalanceService = balance.NewService(
		deps.Uow,
		deps.BalanceCache,
		cfg.Cache.BalanceTTL,
		cfg.Balance.Currency,
		deps.Logger,
	)
	app.TransactionService = transaction.New(deps.Uow, deps.EventBus, deps.Logger)
	app.SettingsService = settings.New(deps.Uow, app.AuthService, deps.Logger)
	app.NotificationService = notification.New(
		deps.Uow,
		app.SettingsService,
		deps.Logger,
		deps.Notifiers...,
	)

	if err := app.AuthService.Init(ctx); err != nil {
		return nil, err
	}
	if err := app.setupSubscribers(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Aggregator returns a fresh balance aggregator over the owner's ledger.
func (a *App) Aggregator(fetcher balance.Fetcher) *balance.Aggregator {
	if a.Deps.Observer == nil {
		return balance.NewAggregator(fetcher)
	}
	return balance.NewAggregator(fetcher, balance.WithObserver(a.Deps.Observer))
}

// Close removes every bus subscription and disposes the session provider.
func (a *App) Close() {
	for i := len(a.unsubs) - 1; i >= 0; i-- {
		a.unsubs[i]()
	}
	a.unsubs = nil
	a.AuthService.Dispose()
}
