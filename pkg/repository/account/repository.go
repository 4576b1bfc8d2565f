package account

import (
	"context"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	"github.com/google/uuid"
)

// Repository defines the interface for account data access operations.
type Repository interface {
	// Create inserts a new account. It returns domain.ErrAlreadyExists when an
	// active account with the same owner, kind and number exists.
	Create(ctx context.Context, acct *domain.Account) error

	// Update applies the non-nil fields of update to the account.
	Update(ctx context.Context, id uuid.UUID, update dto.AccountUpdate) error

	// Get retrieves an account by its ID.
	Get(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// ListByOwner lists the owner's accounts, oldest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, activeOnly bool) ([]*domain.Account, error)

	// FindActive lists the owner's active accounts of the given kind.
	FindActive(ctx context.Context, ownerID uuid.UUID, kind domain.Kind) ([]*domain.Account, error)

	// FindActiveByNumber returns domain.ErrNotFound when no active account matches.
	FindActiveByNumber(ctx context.Context, ownerID uuid.UUID, kind domain.Kind, number string) (*domain.Account, error)
}
