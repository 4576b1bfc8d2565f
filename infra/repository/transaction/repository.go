package transaction

import (
	"context"
	"maps"
	"strings"
	"time"

	infrarepo "github.com/amirasaad/finboard/infra/repository"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	repo "github.com/amirasaad/finboard/pkg/repository/transaction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// New creates a transaction repository using the provided *gorm.DB.
func New(db *gorm.DB) repo.Repository {
	return &repository{db: db}
}

// Create implements transaction.Repository.
func (r *repository) Create(ctx context.Context, tx *domain.Transaction) error {
	m := mapDomainToModel(tx)
	err := infrarepo.WrapError("create transaction", func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
	if err != nil {
		return err
	}
	tx.Seq = m.Seq
	return nil
}

// Get implements transaction.Repository.
func (r *repository) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var m Transaction
	err := infrarepo.WrapError("get transaction", func() error {
		return r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	})
	if err != nil {
		return nil, infrarepo.NotFoundAs(err, domain.ErrTransactionNotFound)
	}
	return mapModelToDomain(&m), nil
}

// Update implements transaction.Repository.
func (r *repository) Update(ctx context.Context, id uuid.UUID, update dto.TransactionUpdate) error {
	updates := mapUpdateDTOToModel(update)
	updates["updated_at"] = time.Now().UTC()

	var affected int64
	err := infrarepo.WrapError("update transaction", func() error {
		res := r.db.WithContext(ctx).Model(&Transaction{}).Where("id = ?", id).Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// Delete implements transaction.Repository.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	var affected int64
	err := infrarepo.WrapError("delete transaction", func() error {
		res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Transaction{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// List implements transaction.Repository.
func (r *repository) List(
	ctx context.Context,
	accountIDs []uuid.UUID,
	filter domain.TransactionFilter,
	page, pageSize int,
) (*domain.TransactionPage, error) {
	page, pageSize = domain.NormalizePage(page, pageSize)
	result := &domain.TransactionPage{Items: []*domain.Transaction{}}
	if len(accountIDs) == 0 {
		return result, nil
	}

	base := r.db.WithContext(ctx).Model(&Transaction{}).Scopes(matching(accountIDs, filter))

	err := infrarepo.WrapError("count transactions", func() error {
		return base.Session(&gorm.Session{}).Count(&result.TotalCount).Error
	})
	if err != nil {
		return nil, err
	}
	offset, ok := domain.PageOffset(page, pageSize)
	if result.TotalCount == 0 || !ok || int64(offset) >= result.TotalCount {
		return result, nil
	}

	var rows []Transaction
	err = infrarepo.WrapError("list transactions", func() error {
		return base.Session(&gorm.Session{}).
			Order("date DESC").
			Order("seq ASC").
			Offset(offset).
			Limit(pageSize).
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	for i := range rows {
		result.Items = append(result.Items, mapModelToDomain(&rows[i]))
	}
	return result, nil
}

// Summarize implements transaction.Repository. Amounts are added in Go so
// the total is exact on every dialect.
func (r *repository) Summarize(ctx context.Context, accountID uuid.UUID) (domain.LedgerSummary, error) {
	var rows []struct {
		Amount    decimal.Decimal
		Direction string
		UpdatedAt time.Time
	}
	err := infrarepo.WrapError("summarize transactions", func() error {
		return r.db.WithContext(ctx).
			Model(&Transaction{}).
			Select("amount", "direction", "updated_at").
			Where("account_id = ? AND status = ?", accountID, domain.StatusCompleted).
			Find(&rows).Error
	})
	if err != nil {
		return domain.LedgerSummary{}, err
	}

	summary := domain.LedgerSummary{Total: decimal.Zero}
	for _, row := range rows {
		if domain.Direction(row.Direction) == domain.Debit {
			summary.Total = summary.Total.Sub(row.Amount)
		} else {
			summary.Total = summary.Total.Add(row.Amount)
		}
		summary.Count++
		if at := row.UpdatedAt.UTC(); at.After(summary.LastActivity) {
			summary.LastActivity = at
		}
	}
	return summary, nil
}

// matching is a scope applying the account set and every set filter field.
func matching(accountIDs []uuid.UUID, f domain.TransactionFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		q = q.Where("account_id IN ?", accountIDs)
		if f.AccountID != nil {
			q = q.Where("account_id = ?", *f.AccountID)
		}
		if f.StartDate != nil {
			q = q.Where("date >= ?", f.StartDate.UTC())
		}
		if f.EndDate != nil {
			q = q.Where("date <= ?", f.EndDate.UTC())
		}
		if f.MinAmount != nil {
			q = q.Where("amount >= ?", *f.MinAmount)
		}
		if f.MaxAmount != nil {
			q = q.Where("amount <= ?", *f.MaxAmount)
		}
		if len(f.Directions) > 0 {
			dirs := make([]string, 0, len(f.Directions))
			for _, d := range f.Directions {
				dirs = append(dirs, string(d))
			}
			q = q.Where("direction IN ?", dirs)
		}
		if len(f.Categories) > 0 {
			q = q.Where("category IN ?", f.Categories)
		}
		if len(f.Kinds) > 0 {
			kinds := make([]string, 0, len(f.Kinds))
			for _, k := range f.Kinds {
				kinds = append(kinds, string(k))
			}
			q = q.Where("kind IN ?", kinds)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.Search != "" {
			q = q.Where(`LOWER(description) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(f.Search))+"%")
		}
		return q
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// mapDomainToModel maps a domain transaction to its GORM model.
func mapDomainToModel(tx *domain.Transaction) Transaction {
	return Transaction{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		Kind:        string(tx.Kind),
		Date:        tx.Date.UTC(),
		Description: tx.Description,
		Amount:      tx.Amount,
		Direction:   string(tx.Direction),
		Category:    tx.Category,
		Reference:   tx.Reference,
		Status:      tx.Status,
		Metadata:    jsonMap(maps.Clone(tx.Metadata)),
		CreatedAt:   tx.CreatedAt.UTC(),
		UpdatedAt:   tx.UpdatedAt.UTC(),
	}
}

// mapUpdateDTOToModel maps TransactionUpdate DTO to a map for GORM Updates.
func mapUpdateDTOToModel(update dto.TransactionUpdate) map[string]any {
	updates := make(map[string]any)
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.Amount != nil {
		updates["amount"] = *update.Amount
	}
	if update.Category != nil {
		updates["category"] = *update.Category
	}
	if update.Reference != nil {
		updates["reference"] = *update.Reference
	}
	if update.Status != nil {
		updates["status"] = *update.Status
	}
	if update.Metadata != nil {
		updates["metadata"] = jsonMap(maps.Clone(update.Metadata))
	}
	return updates
}

// mapModelToDomain maps a GORM model to a domain transaction.
func mapModelToDomain(m *Transaction) *domain.Transaction {
	return &domain.Transaction{
		ID:          m.ID,
		Seq:         m.Seq,
		AccountID:   m.AccountID,
		Kind:        domain.Kind(m.Kind),
		Date:        m.Date.UTC(),
		Description: m.Description,
		Amount:      m.Amount,
		Direction:   domain.Direction(m.Direction),
		Category:    m.Category,
		Reference:   m.Reference,
		Status:      m.Status,
		Metadata:    map[string]any(m.Metadata),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}
