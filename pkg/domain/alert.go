package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AlertType string

const (
	AlertLargeTransaction AlertType = "large_transaction"
	AlertLowBalance       AlertType = "low_balance"
)

// Alert is a user notification raised by a transaction posting.
type Alert struct {
	Type          AlertType       `json:"type"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Kind          Kind            `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	Threshold     decimal.Decimal `json:"threshold"`
	Currency      string          `json:"currency"`
	// Email is set when the owner opted into email notifications.
	Email     bool      `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
