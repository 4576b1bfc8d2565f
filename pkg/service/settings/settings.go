// Package settings manages per-user preferences and profile details. The
// settings page saves four groups independently; each group writes only its
// own columns.
package settings

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	"github.com/amirasaad/finboard/pkg/repository"
	"github.com/google/uuid"
)

// Group is an independently saved part of the settings page.
type Group string

const (
	GroupProfile       Group = "profile"
	GroupPreferences   Group = "preferences"
	GroupNotifications Group = "notifications"
	GroupPassword      Group = "password"
)

// PasswordChanger verifies the current password and stores a new one.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

type saveKey struct {
	owner uuid.UUID
	group Group
}

type Service struct {
	uow       repository.UnitOfWork
	passwords PasswordChanger
	logger    *slog.Logger

	mu     sync.Mutex
	saving map[saveKey]struct{}
}

func New(uow repository.UnitOfWork, passwords PasswordChanger, logger *slog.Logger) *Service {
	return &Service{
		uow:       uow,
		passwords: passwords,
		logger:    logger.With("service", "settings"),
		saving:    make(map[saveKey]struct{}),
	}
}

// Get returns the owner's settings, creating the default row on first
// access. Concurrent first reads all see the same row.
func (s *Service) Get(ctx context.Context, owner uuid.UUID) (*domain.Settings, error) {
	st, err := s.read(ctx, owner)
	if !errors.Is(err, domain.ErrNotFound) {
		return st, err
	}

	def := domain.DefaultSettings(owner)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		return uow.SettingsRepository().Create(ctx, def)
	})
	switch {
	case err == nil:
		s.logger.Info("Default settings created", "owner", owner)
		return def, nil
	case errors.Is(err, domain.ErrAlreadyExists):
		return s.read(ctx, owner)
	default:
		return nil, err
	}
}

func (s *Service) read(ctx context.Context, owner uuid.UUID) (*domain.Settings, error) {
	var st *domain.Settings
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		st, err = uow.SettingsRepository().Get(ctx, owner)
		return err
	})
	return st, err
}

// Overview returns the profile, preferences and notification settings the
// way the settings page groups them.
func (s *Service) Overview(ctx context.Context, owner uuid.UUID) (*domain.SettingsOverview, error) {
	st, err := s.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	p, err := s.profile(ctx, owner)
	if err != nil {
		return nil, err
	}
	return domain.NewSettingsOverview(p, st), nil
}

// profile returns nil when no profile was saved yet.
func (s *Service) profile(ctx context.Context, owner uuid.UUID) (*domain.Profile, error) {
	var p *domain.Profile
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		p, err = uow.SettingsRepository().GetProfile(ctx, owner)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// begin marks group as saving for owner. The returned func ends the save.
func (s *Service) begin(owner uuid.UUID, group Group) (func(), error) {
	key := saveKey{owner: owner, group: group}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.saving[key]; busy {
		return nil, domain.ErrSaveInProgress
	}
	s.saving[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.saving, key)
		s.mu.Unlock()
	}, nil
}

// save runs fn as a save of group, logging the outcome.
func (s *Service) save(ctx context.Context, owner uuid.UUID, group Group, fn func() error) (err error) {
	log := s.logger.With("op", "Save", "owner", owner, "group", group)
	done, err := s.begin(owner, group)
	if err != nil {
		log.Warn("Overlapping settings save rejected")
		return err
	}
	defer done()

	log.Info("Saving settings")
	defer func() {
		if err != nil {
			log.Warn("Settings save failed", "error", err)
			return
		}
		log.Info("Settings saved")
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// UpdateProfile merges update into the owner's profile, creating it on the
// first save.
func (s *Service) UpdateProfile(ctx context.Context, owner uuid.UUID, update dto.ProfileUpdate) (*domain.Profile, error) {
	var out *domain.Profile
	err := s.save(ctx, owner, GroupProfile, func() error {
		return s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
			repo := uow.SettingsRepository()
			p, err := repo.GetProfile(ctx, owner)
			if errors.Is(err, domain.ErrNotFound) {
				p, err = &domain.Profile{OwnerID: owner}, nil
			}
			if err != nil {
				return err
			}
			if update.FullName != nil {
				p.FullName = strings.TrimSpace(*update.FullName)
			}
			if update.PhoneNumber != nil {
				p.PhoneNumber = strings.TrimSpace(*update.PhoneNumber)
			}
			if update.AvatarURL != nil {
				p.AvatarURL = strings.TrimSpace(*update.AvatarURL)
			}
			p.UpdatedAt = time.Now().UTC()
			if err := repo.SaveProfile(ctx, p); err != nil {
				return err
			}
			out = p
			return nil
		})
	})
	return out, err
}

// UpdatePreferences changes the theme and display currency.
func (s *Service) UpdatePreferences(ctx context.Context, owner uuid.UUID, update dto.PreferencesUpdate) (*domain.Settings, error) {
	if update.Theme != nil && !update.Theme.Valid() {
		return nil, domain.ErrInvalidTheme
	}
	if update.Currency != nil && !domain.ValidCurrency(*update.Currency) {
		return nil, domain.ErrInvalidCurrency
	}
	return s.updateSettings(ctx, owner, GroupPreferences, func(uow repository.UnitOfWork) error {
		return uow.SettingsRepository().UpdatePreferences(ctx, owner, update)
	})
}

// UpdateNotifications changes the alert switches and thresholds.
func (s *Service) UpdateNotifications(ctx context.Context, owner uuid.UUID, update dto.NotificationsUpdate) (*domain.Settings, error) {
	if update.LowBalanceThreshold != nil && update.LowBalanceThreshold.IsNegative() {
		return nil, domain.ErrNegativeThreshold
	}
	if update.LargeTransactionThreshold != nil && update.LargeTransactionThreshold.IsNegative() {
		return nil, domain.ErrNegativeThreshold
	}
	return s.updateSettings(ctx, owner, GroupNotifications, func(uow repository.UnitOfWork) error {
		return uow.SettingsRepository().UpdateNotifications(ctx, owner, update)
	})
}

func (s *Service) updateSettings(
	ctx context.Context,
	owner uuid.UUID,
	group Group,
	apply func(uow repository.UnitOfWork) error,
) (*domain.Settings, error) {
	var out *domain.Settings
	err := s.save(ctx, owner, group, func() error {
		if _, err := s.Get(ctx, owner); err != nil {
			return err
		}
		return s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
			if err := apply(uow); err != nil {
				return err
			}
			var err error
			out, err = uow.SettingsRepository().Get(ctx, owner)
			return err
		})
	})
	return out, err
}

// UpdatePassword checks the form before handing the change to the session
// provider, which verifies the current password.
func (s *Service) UpdatePassword(ctx context.Context, owner uuid.UUID, update dto.PasswordUpdate) error {
	switch {
	case update.Current == "":
		return domain.ErrCurrentPasswordReq
	case update.New == "":
		return domain.ErrNewPasswordRequired
	case update.New != update.Confirm:
		return domain.ErrPasswordMismatch
	}
	return s.save(ctx, owner, GroupPassword, func() error {
		return s.passwords.ChangePassword(ctx, owner, update.Current, update.New)
	})
}

// Reset restores the default preferences and notification settings. The
// profile is kept.
func (s *Service) Reset(ctx context.Context, owner uuid.UUID) (*domain.Settings, error) {
	def := domain.DefaultSettings(owner)
	if _, err := s.UpdatePreferences(ctx, owner, dto.PreferencesUpdate{
		Theme:    &def.Theme,
		Currency: &def.Currency,
	}); err != nil {
		return nil, err
	}
	return s.UpdateNotifications(ctx, owner, dto.NotificationsUpdate{
		Email:                     &def.NotifyEmail,
		LowBalance:                &def.NotifyLowBalance,
		LargeTransaction:          &def.NotifyLargeTransaction,
		LowBalanceThreshold:       &def.LowBalanceThreshold,
		LargeTransactionThreshold: &def.LargeTransactionThreshold,
	})
}
