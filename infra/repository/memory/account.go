package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	"github.com/amirasaad/finboard/pkg/repository/account"
	"github.com/google/uuid"
)

type accountRepository struct {
	store *Store
}

// NewAccountRepository returns an account repository over store.
func NewAccountRepository(store *Store) account.Repository {
	return &accountRepository{store: store}
}

func (r *accountRepository) Create(ctx context.Context, acct *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.accounts[acct.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if acct.IsActive && r.activeByNumber(acct.OwnerID, acct.Kind, acct.AccountNumber) != nil {
		return domain.ErrAlreadyExists
	}
	cp := *acct
	r.store.accounts[acct.ID] = &cp
	return nil
}

func (r *accountRepository) Update(ctx context.Context, id uuid.UUID, update dto.AccountUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	acct, ok := r.store.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if update.IsActive != nil && *update.IsActive && !acct.IsActive {
		if r.activeByNumber(acct.OwnerID, acct.Kind, acct.AccountNumber) != nil {
			return domain.ErrAlreadyExists
		}
	}
	if update.Name != nil {
		acct.Name = *update.Name
	}
	if update.IsActive != nil {
		acct.IsActive = *update.IsActive
	}
	if update.Branch != nil {
		acct.Branch = *update.Branch
	}
	if update.Subtype != nil {
		acct.Subtype = *update.Subtype
	}
	acct.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	acct, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

func (r *accountRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, activeOnly bool) ([]*domain.Account, error) {
	return r.filter(ctx, func(a *domain.Account) bool {
		return a.OwnerID == ownerID && (!activeOnly || a.IsActive)
	})
}

func (r *accountRepository) FindActive(ctx context.Context, ownerID uuid.UUID, kind domain.Kind) ([]*domain.Account, error) {
	return r.filter(ctx, func(a *domain.Account) bool {
		return a.OwnerID == ownerID && a.Kind == kind && a.IsActive
	})
}

func (r *accountRepository) FindActiveByNumber(
	ctx context.Context,
	ownerID uuid.UUID,
	kind domain.Kind,
	number string,
) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	acct := r.activeByNumber(ownerID, kind, number)
	if acct == nil {
		return nil, domain.ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

// activeByNumber expects the store lock to be held.
func (r *accountRepository) activeByNumber(ownerID uuid.UUID, kind domain.Kind, number string) *domain.Account {
	for _, a := range r.store.accounts {
		if a.IsActive && a.OwnerID == ownerID && a.Kind == kind && a.AccountNumber == number {
			return a
		}
	}
	return nil
}

func (r *accountRepository) filter(ctx context.Context, keep func(*domain.Account) bool) ([]*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]*domain.Account, 0)
	for _, a := range r.store.accounts {
		if keep(a) {
			cp := *a
			result = append(result, &cp)
		}
	}
	slices.SortFunc(result, func(a, b *domain.Account) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.AccountNumber, b.AccountNumber)
	})
	return result, nil
}
