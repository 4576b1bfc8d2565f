package memory

import (
	"context"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	"github.com/amirasaad/finboard/pkg/repository/settings"
	"github.com/google/uuid"
)

type settingsRepository struct {
	store *Store
}

// NewSettingsRepository returns a settings repository over store.
func NewSettingsRepository(store *Store) settings.Repository {
	return &settingsRepository{store: store}
}

func (r *settingsRepository) Get(ctx context.Context, ownerID uuid.UUID) (*domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	s, ok := r.store.settings[ownerID]
	if !ok {
		return nil, domain.ErrSettingsNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *settingsRepository) Create(ctx context.Context, s *domain.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.settings[s.OwnerID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *s
	r.store.settings[s.OwnerID] = &cp
	return nil
}

func (r *settingsRepository) UpdatePreferences(ctx context.Context, ownerID uuid.UUID, update dto.PreferencesUpdate) error {
	return r.update(ctx, ownerID, func(s *domain.Settings) {
		if update.Theme != nil {
			s.Theme = *update.Theme
		}
		if update.Currency != nil {
			s.Currency = *update.Currency
		}
	})
}

func (r *settingsRepository) UpdateNotifications(ctx context.Context, ownerID uuid.UUID, update dto.NotificationsUpdate) error {
	return r.update(ctx, ownerID, func(s *domain.Settings) {
		if update.Email != nil {
			s.NotifyEmail = *update.Email
		}
		if update.LowBalance != nil {
			s.NotifyLowBalance = *update.LowBalance
		}
		if update.LargeTransaction != nil {
			s.NotifyLargeTransaction = *update.LargeTransaction
		}
		if update.LowBalanceThreshold != nil {
			s.LowBalanceThreshold = *update.LowBalanceThreshold
		}
		if update.LargeTransactionThreshold != nil {
			s.LargeTransactionThreshold = *update.LargeTransactionThreshold
		}
	})
}

func (r *settingsRepository) update(ctx context.Context, ownerID uuid.UUID, apply func(*domain.Settings)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.settings[ownerID]
	if !ok {
		return domain.ErrSettingsNotFound
	}
	apply(s)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *settingsRepository) GetProfile(ctx context.Context, ownerID uuid.UUID) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.profiles[ownerID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *settingsRepository) SaveProfile(ctx context.Context, p *domain.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cp := *p
	cp.UpdatedAt = time.Now().UTC()
	r.store.profiles[p.OwnerID] = &cp
	return nil
}
