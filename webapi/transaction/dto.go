package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTransactionRequest represents the request body for posting a
// transaction. Date defaults to now and status to completed.
type CreateTransactionRequest struct {
	AccountID   string          `json:"account_id" validate:"required,uuid"`
	Date        *time.Time      `json:"date"`
	Description string          `json:"description" validate:"required,max=255"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type" validate:"required,oneof=credit debit"`
	Category    string          `json:"category" validate:"max=64"`
	Reference   string          `json:"reference_number" validate:"max=64"`
	Status      string          `json:"status" validate:"max=32"`
	Metadata    map[string]any  `json:"metadata"`
}

// UpdateTransactionRequest carries the amendable fields; omitted fields are
// left untouched.
type UpdateTransactionRequest struct {
	Description *string          `json:"description" validate:"omitempty,min=1,max=255"`
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category" validate:"omitempty,max=64"`
	Reference   *string          `json:"reference_number" validate:"omitempty,max=64"`
	Status      *string          `json:"status" validate:"omitempty,min=1,max=32"`
	Metadata    map[string]any   `json:"metadata"`
}

// PageResponse is one page of the transaction feed.
type PageResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}
