package memory

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	"github.com/amirasaad/finboard/pkg/repository/transaction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type transactionRepository struct {
	store *Store
}

// NewTransactionRepository returns a transaction repository over store.
func NewTransactionRepository(store *Store) transaction.Repository {
	return &transactionRepository{store: store}
}

func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.transactions[tx.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.store.seq++
	tx.Seq = r.store.seq
	r.store.transactions[tx.ID] = cloneTransaction(tx)
	return nil
}

func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	tx, ok := r.store.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return cloneTransaction(tx), nil
}

func (r *transactionRepository) Update(ctx context.Context, id uuid.UUID, update dto.TransactionUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, ok := r.store.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if update.Description != nil {
		tx.Description = *update.Description
	}
	if update.Amount != nil {
		tx.Amount = *update.Amount
	}
	if update.Category != nil {
		tx.Category = *update.Category
	}
	if update.Reference != nil {
		tx.Reference = *update.Reference
	}
	if update.Status != nil {
		tx.Status = *update.Status
	}
	if update.Metadata != nil {
		tx.Metadata = maps.Clone(update.Metadata)
	}
	tx.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *transactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.transactions[id]; !ok {
		return domain.ErrTransactionNotFound
	}
	delete(r.store.transactions, id)
	return nil
}

func (r *transactionRepository) List(
	ctx context.Context,
	accountIDs []uuid.UUID,
	filter domain.TransactionFilter,
	page, pageSize int,
) (*domain.TransactionPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, pageSize = domain.NormalizePage(page, pageSize)
	result := &domain.TransactionPage{Items: []*domain.Transaction{}}
	if len(accountIDs) == 0 {
		return result, nil
	}

	r.store.mu.RLock()
	matched := make([]*domain.Transaction, 0)
	for _, tx := range r.store.transactions {
		if slices.Contains(accountIDs, tx.AccountID) && filter.Matches(tx) {
			matched = append(matched, tx)
		}
	}
	slices.SortFunc(matched, domain.CompareTransactions)

	result.TotalCount = int64(len(matched))
	if from, ok := domain.PageOffset(page, pageSize); ok && from < len(matched) {
		to := from + min(pageSize, len(matched)-from)
		for _, tx := range matched[from:to] {
			result.Items = append(result.Items, cloneTransaction(tx))
		}
	}
	r.store.mu.RUnlock()
	return result, nil
}

func (r *transactionRepository) Summarize(ctx context.Context, accountID uuid.UUID) (domain.LedgerSummary, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerSummary{}, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	summary := domain.LedgerSummary{Total: decimal.Zero}
	for _, tx := range r.store.transactions {
		if tx.AccountID != accountID || tx.Status != domain.StatusCompleted {
			continue
		}
		summary.Total = summary.Total.Add(tx.Signed())
		summary.Count++
		if tx.UpdatedAt.After(summary.LastActivity) {
			summary.LastActivity = tx.UpdatedAt
		}
	}
	return summary, nil
}

func cloneTransaction(tx *domain.Transaction) *domain.Transaction {
	cp := *tx
	cp.Metadata = maps.Clone(tx.Metadata)
	return &cp
}
