package domain

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the sign of a transaction relative to its account.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

func (d Direction) Valid() bool { return d == Credit || d == Debit }

// Label renders the direction as Credit or Debit.
func (d Direction) Label() string {
	if d == Credit {
		return "Credit"
	}
	return "Debit"
}

// StatusCompleted is the default status of a new transaction. Only
// completed transactions count towards a balance.
const StatusCompleted = "completed"

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Transaction is a single posting against an account. Amount is always a
// positive magnitude; Direction carries the sign.
type Transaction struct {
	ID uuid.UUID `json:"id"`
	// Seq is the insertion sequence used to order transactions sharing a date.
	Seq         int64           `json:"-"`
	AccountID   uuid.UUID       `json:"account_id"`
	Kind        Kind            `json:"kind"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"type"`
	Category    string          `json:"category,omitempty"`
	Reference   string          `json:"reference_number,omitempty"`
	Status      string          `json:"status"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Signed returns the amount with the direction applied.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Direction == Debit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// TransactionFilter narrows a transaction listing. Zero values disable the
// corresponding condition; all set conditions must hold.
type TransactionFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	Directions []Direction
	Categories []string
	Status     string
	Search     string
	Kinds      []Kind
	AccountID  *uuid.UUID
}

// Matches evaluates the filter against a single transaction.
func (f TransactionFilter) Matches(t *Transaction) bool {
	if f.StartDate != nil && t.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.Date.After(*f.EndDate) {
		return false
	}
	if f.MinAmount != nil && t.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && t.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	if len(f.Directions) > 0 && !slices.Contains(f.Directions, t.Direction) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, t.Category) {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Search)) {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, t.Kind) {
		return false
	}
	if f.AccountID != nil && t.AccountID != *f.AccountID {
		return false
	}
	return true
}

// TransactionPage is one page of a filtered listing. TotalCount counts every
// match before pagination.
type TransactionPage struct {
	Items      []*Transaction `json:"items"`
	TotalCount int64          `json:"total_count"`
}

// NormalizePage replaces non-positive paging values with the defaults.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// AmountScale is the number of decimal places a stored amount keeps.
const AmountScale = 2

var maxAmount = decimal.New(1, 16)

// ValidateAmount checks that amount is positive and fits the ledger's
// numeric(18,2) column without rounding.
func ValidateAmount(amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return ErrAmountNotPositive
	case !amount.Equal(amount.Truncate(AmountScale)):
		return ErrAmountPrecision
	case amount.GreaterThanOrEqual(maxAmount):
		return ErrAmountTooLarge
	}
	return nil
}

// PageOffset returns the number of rows before page. ok is false when the
// offset does not fit in an int.
func PageOffset(page, pageSize int) (offset int, ok bool) {
	page, pageSize = NormalizePage(page, pageSize)
	if page-1 > math.MaxInt/pageSize {
		return 0, false
	}
	return (page - 1) * pageSize, true
}

// CompareTransactions orders by date descending, then by insertion order.
func CompareTransactions(a, b *Transaction) int {
	if c := b.Date.Compare(a.Date); c != 0 {
		return c
	}
	switch {
	case a.Seq < b.Seq:
		return -1
	case a.Seq > b.Seq:
		return 1
	}
	return 0
}
