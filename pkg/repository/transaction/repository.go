package transaction

import (
	"context"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	"github.com/google/uuid"
)

// Repository defines the interface for transaction data access operations.
type Repository interface {
	// Create inserts tx and assigns its insertion sequence.
	Create(ctx context.Context, tx *domain.Transaction) error

	// Get returns domain.ErrNotFound when the transaction does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)

	// Update applies the non-nil fields of update.
	Update(ctx context.Context, id uuid.UUID, update dto.TransactionUpdate) error

	// Delete removes the transaction.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns one page of the transactions of accountIDs that match
	// filter, ordered by date descending then insertion order.
	List(
		ctx context.Context,
		accountIDs []uuid.UUID,
		filter domain.TransactionFilter,
		page, pageSize int,
	) (*domain.TransactionPage, error)

	// Summarize aggregates the completed transactions of an account.
	Summarize(ctx context.Context, accountID uuid.UUID) (domain.LedgerSummary, error)
}
