package dto

import (
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionCreate is the input for posting a transaction. Date defaults to
// now and Status to "completed" when left empty.
type TransactionCreate struct {
	AccountID   uuid.UUID
	Date        *time.Time
	Description string
	Amount      decimal.Decimal
	Direction   domain.Direction
	Category    string
	Reference   string
	Status      string
	Metadata    map[string]any
}

// TransactionUpdate carries the amendable fields. Date and account are
// immutable once a transaction exists.
type TransactionUpdate struct {
	Description *string
	Amount      *decimal.Decimal
	Category    *string
	Reference   *string
	Status      *string
	Metadata    map[string]any
}

// IsEmpty reports whether the update would change nothing.
func (u TransactionUpdate) IsEmpty() bool {
	return u.Description == nil && u.Amount == nil && u.Category == nil &&
		u.Reference == nil && u.Status == nil && u.Metadata == nil
}
