package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account is an institution account linked by a user. Accounts are never
// hard-deleted; unlinking clears IsActive.
type Account struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Kind          Kind      `json:"kind"`
	AccountNumber string    `json:"account_number"`
	Name          string    `json:"name,omitempty"`
	IsActive      bool      `json:"is_active"`
	// Branch is set for coop accounts.
	Branch string `json:"branch,omitempty"`
	// Subtype is the SBM account type, e.g. Savings.
	Subtype   string    `json:"account_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccount validates the link request and returns an active account.
func NewAccount(ownerID uuid.UUID, kind Kind, number string) (*Account, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, ErrAccountNumberEmpty
	}
	now := time.Now().UTC()
	return &Account{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Kind:          kind,
		AccountNumber: number,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// OwnedBy reports whether the account belongs to the given user.
func (a *Account) OwnedBy(ownerID uuid.UUID) bool {
	return a != nil && a.OwnerID == ownerID
}
