package app

import (
	"context"

	"github.com/amirasaad/finboard/pkg/domain/events"
)

// setupSubscribers registers the cross-service reactions on the event bus.
func (a *App) setupSubscribers() error {
	logger := a.Deps.Logger.With("component", "subscribers")

	a.unsubs = append(a.unsubs,
		a.BalanceService.Subscribe(a.Deps.EventBus),
		a.NotificationService.Subscribe(a.Deps.EventBus),
	)

	unsub, err := a.AuthService.OnChange(func(ctx context.Context, change events.AuthChanged) {
		switch change.Change {
		case events.SignedUp:
			if _, err := a.SettingsService.Get(ctx, change.UserID); err != nil {
				logger.Error("Creating default settings failed", "user_id", change.UserID, "error", err)
			}
			if !a.Config.Accounts.SeedSamples {
				return
			}
			seeded, err := a.AccountService.SeedSamples(ctx, change.UserID)
			if err != nil {
				logger.Error("Seeding sample accounts failed", "user_id", change.UserID, "error", err)
				return
			}
			logger.Info("Sample accounts seeded", "user_id", change.UserID, "seeded", seeded)
		case events.SignedOut:
			if err := a.BalanceService.Invalidate(ctx, change.UserID); err != nil {
				logger.Warn("Dropping cached balances failed", "user_id", change.UserID, "error", err)
			}
		}
	})
	if err != nil {
		return err
	}
	a.unsubs = append(a.unsubs, unsub)
	return nil
}
