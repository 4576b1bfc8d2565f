package account

import (
	"context"
	"time"

	infrarepo "github.com/amirasaad/finboard/infra/repository"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	repo "github.com/amirasaad/finboard/pkg/repository/account"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// New creates an account repository using the provided *gorm.DB.
func New(db *gorm.DB) repo.Repository {
	return &repository{db: db}
}

// Create implements account.Repository.
func (r *repository) Create(ctx context.Context, acct *domain.Account) error {
	m := mapDomainToModel(acct)
	return infrarepo.WrapError("create account", func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
}

// Update implements account.Repository.
func (r *repository) Update(ctx context.Context, id uuid.UUID, update dto.AccountUpdate) error {
	updates := mapUpdateDTOToModel(update)
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()

	var affected int64
	err := infrarepo.WrapError("update account", func() error {
		res := r.db.WithContext(ctx).Model(&Account{}).Where("id = ?", id).Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// Get implements account.Repository.
func (r *repository) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var m Account
	err := infrarepo.WrapError("get account", func() error {
		return r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	})
	if err != nil {
		return nil, infrarepo.NotFoundAs(err, domain.ErrAccountNotFound)
	}
	return mapModelToDomain(&m), nil
}

// ListByOwner implements account.Repository.
func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, activeOnly bool) ([]*domain.Account, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	return r.find(q, "list accounts")
}

// FindActive implements account.Repository.
func (r *repository) FindActive(ctx context.Context, ownerID uuid.UUID, kind domain.Kind) ([]*domain.Account, error) {
	q := r.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ? AND is_active = ?", ownerID, string(kind), true)
	return r.find(q, "find active accounts")
}

// FindActiveByNumber implements account.Repository.
func (r *repository) FindActiveByNumber(
	ctx context.Context,
	ownerID uuid.UUID,
	kind domain.Kind,
	number string,
) (*domain.Account, error) {
	var m Account
	err := infrarepo.WrapError("find account by number", func() error {
		return r.db.WithContext(ctx).
			Where("owner_id = ? AND kind = ? AND account_number = ? AND is_active = ?", ownerID, string(kind), number, true).
			First(&m).Error
	})
	if err != nil {
		return nil, infrarepo.NotFoundAs(err, domain.ErrAccountNotFound)
	}
	return mapModelToDomain(&m), nil
}

func (r *repository) find(q *gorm.DB, op string) ([]*domain.Account, error) {
	var accts []Account
	err := infrarepo.WrapError(op, func() error {
		return q.Order("created_at ASC").Order("account_number ASC").Find(&accts).Error
	})
	if err != nil {
		return nil, err
	}
	result := make([]*domain.Account, 0, len(accts))
	for i := range accts {
		result = append(result, mapModelToDomain(&accts[i]))
	}
	return result, nil
}

// mapDomainToModel maps a domain account to its GORM model.
func mapDomainToModel(a *domain.Account) Account {
	return Account{
		ID:            a.ID,
		OwnerID:       a.OwnerID,
		Kind:          string(a.Kind),
		AccountNumber: a.AccountNumber,
		Name:          a.Name,
		IsActive:      a.IsActive,
		Branch:        a.Branch,
		Subtype:       a.Subtype,
		CreatedAt:     a.CreatedAt.UTC(),
		UpdatedAt:     a.UpdatedAt.UTC(),
	}
}

// mapUpdateDTOToModel maps AccountUpdate DTO to a map for GORM Updates.
func mapUpdateDTOToModel(update dto.AccountUpdate) map[string]any {
	updates := make(map[string]any)
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}
	if update.Branch != nil {
		updates["branch"] = *update.Branch
	}
	if update.Subtype != nil {
		updates["subtype"] = *update.Subtype
	}
	return updates
}

// mapModelToDomain maps a GORM model to a domain account.
func mapModelToDomain(m *Account) *domain.Account {
	return &domain.Account{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		Kind:          domain.Kind(m.Kind),
		AccountNumber: m.AccountNumber,
		Name:          m.Name,
		IsActive:      m.IsActive,
		Branch:        m.Branch,
		Subtype:       m.Subtype,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
