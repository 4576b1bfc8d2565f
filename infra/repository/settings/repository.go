package settings

import (
	"context"
	"time"

	infrarepo "github.com/amirasaad/finboard/infra/repository"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	repo "github.com/amirasaad/finboard/pkg/repository/settings"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// New creates a settings repository using the provided *gorm.DB.
func New(db *gorm.DB) repo.Repository {
	return &repository{db: db}
}

// Get implements settings.Repository.
func (r *repository) Get(ctx context.Context, ownerID uuid.UUID) (*domain.Settings, error) {
	var m Settings
	err := infrarepo.WrapError("get settings", func() error {
		return r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&m).Error
	})
	if err != nil {
		return nil, infrarepo.NotFoundAs(err, domain.ErrSettingsNotFound)
	}
	return mapModelToDomain(&m), nil
}

// Create implements settings.Repository.
func (r *repository) Create(ctx context.Context, s *domain.Settings) error {
	m := mapDomainToModel(s)
	return infrarepo.WrapError("create settings", func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
}

// UpdatePreferences implements settings.Repository.
func (r *repository) UpdatePreferences(ctx context.Context, ownerID uuid.UUID, update dto.PreferencesUpdate) error {
	updates := make(map[string]any)
	if update.Theme != nil {
		updates["theme"] = string(*update.Theme)
	}
	if update.Currency != nil {
		updates["currency"] = *update.Currency
	}
	return r.update(ctx, "update preferences", ownerID, updates)
}

// UpdateNotifications implements settings.Repository.
func (r *repository) UpdateNotifications(ctx context.Context, ownerID uuid.UUID, update dto.NotificationsUpdate) error {
	updates := make(map[string]any)
	if update.Email != nil {
		updates["notification_email"] = *update.Email
	}
	if update.LowBalance != nil {
		updates["notification_low_balance"] = *update.LowBalance
	}
	if update.LargeTransaction != nil {
		updates["notification_large_transaction"] = *update.LargeTransaction
	}
	if update.LowBalanceThreshold != nil {
		updates["low_balance_threshold"] = *update.LowBalanceThreshold
	}
	if update.LargeTransactionThreshold != nil {
		updates["large_transaction_threshold"] = *update.LargeTransactionThreshold
	}
	return r.update(ctx, "update notifications", ownerID, updates)
}

func (r *repository) update(ctx context.Context, op string, ownerID uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()

	var affected int64
	err := infrarepo.WrapError(op, func() error {
		res := r.db.WithContext(ctx).Model(&Settings{}).Where("owner_id = ?", ownerID).Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSettingsNotFound
	}
	return nil
}

// GetProfile implements settings.Repository.
func (r *repository) GetProfile(ctx context.Context, ownerID uuid.UUID) (*domain.Profile, error) {
	var m Profile
	err := infrarepo.WrapError("get profile", func() error {
		return r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&m).Error
	})
	if err != nil {
		return nil, infrarepo.NotFoundAs(err, domain.ErrProfileNotFound)
	}
	return &domain.Profile{
		OwnerID:     m.OwnerID,
		FullName:    m.FullName,
		PhoneNumber: m.PhoneNumber,
		AvatarURL:   m.AvatarURL,
		UpdatedAt:   m.UpdatedAt.UTC(),
	}, nil
}

// SaveProfile implements settings.Repository.
func (r *repository) SaveProfile(ctx context.Context, p *domain.Profile) error {
	m := Profile{
		OwnerID:     p.OwnerID,
		FullName:    p.FullName,
		PhoneNumber: p.PhoneNumber,
		AvatarURL:   p.AvatarURL,
		UpdatedAt:   time.Now().UTC(),
	}
	return infrarepo.WrapError("save profile", func() error {
		return r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "phone_number", "avatar_url", "updated_at"}),
		}).Create(&m).Error
	})
}

func mapDomainToModel(s *domain.Settings) Settings {
	return Settings{
		ID:                        s.ID,
		OwnerID:                   s.OwnerID,
		Theme:                     string(s.Theme),
		Currency:                  s.Currency,
		NotifyEmail:               s.NotifyEmail,
		NotifyLowBalance:          s.NotifyLowBalance,
		NotifyLargeTransaction:    s.NotifyLargeTransaction,
		LowBalanceThreshold:       s.LowBalanceThreshold,
		LargeTransactionThreshold: s.LargeTransactionThreshold,
		UpdatedAt:                 s.UpdatedAt.UTC(),
	}
}

func mapModelToDomain(m *Settings) *domain.Settings {
	return &domain.Settings{
		ID:                        m.ID,
		OwnerID:                   m.OwnerID,
		Theme:                     domain.Theme(m.Theme),
		Currency:                  m.Currency,
		NotifyEmail:               m.NotifyEmail,
		NotifyLowBalance:          m.NotifyLowBalance,
		NotifyLargeTransaction:    m.NotifyLargeTransaction,
		LowBalanceThreshold:       m.LowBalanceThreshold,
		LargeTransactionThreshold: m.LargeTransactionThreshold,
		UpdatedAt:                 m.UpdatedAt.UTC(),
	}
}
