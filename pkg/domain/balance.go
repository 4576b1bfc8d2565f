package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "KES"

// Balance is the derived balance of a single account: the sum of its
// completed credits minus its completed debits.
type Balance struct {
	AccountID     uuid.UUID       `json:"account_id"`
	Kind          Kind            `json:"kind"`
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	LastUpdated   time.Time       `json:"last_updated"`
	Branch        string          `json:"branch,omitempty"`
	AccountType   string          `json:"account_type,omitempty"`
}

// LedgerSummary is the aggregate of an account's completed transactions.
type LedgerSummary struct {
	Total decimal.Decimal
	// LastActivity is zero when the account has no completed transactions.
	LastActivity time.Time
	Count        int64
}

// NewBalance builds a balance for acct from its ledger summary.
func NewBalance(acct *Account, summary LedgerSummary, currency string) *Balance {
	if currency == "" {
		currency = DefaultCurrency
	}
	last := summary.LastActivity
	if last.IsZero() {
		last = acct.CreatedAt
	}
	b := &Balance{
		AccountID:     acct.ID,
		Kind:          acct.Kind,
		AccountNumber: acct.AccountNumber,
		Amount:        summary.Total,
		Currency:      currency,
		LastUpdated:   last,
	}
	switch acct.Kind {
	case KindCoop:
		b.Branch = acct.Branch
	case KindSBM:
		b.AccountType = acct.Subtype
	}
	return b
}
