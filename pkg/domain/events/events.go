package events

import (
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/eventbus"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuthChange is the kind of session transition.
type AuthChange string

const (
	SignedUp        AuthChange = "signed_up"
	SignedIn        AuthChange = "signed_in"
	SignedOut       AuthChange = "signed_out"
	PasswordChanged AuthChange = "password_changed"
)

// AuthChanges lists every session transition.
func AuthChanges() []AuthChange {
	return []AuthChange{SignedUp, SignedIn, SignedOut, PasswordChanged}
}

const (
	TypeTransactionChanged = "transaction.changed"
	TypeAccountLinked      = "account.linked"
	TypeAccountUnlinked    = "account.unlinked"
)

// AuthTypeOf returns the event type used for a session transition.
func AuthTypeOf(c AuthChange) string { return "auth." + string(c) }

// AuthChanged is emitted by the session provider.
type AuthChanged struct {
	Change    AuthChange `json:"change"`
	UserID    uuid.UUID  `json:"user_id"`
	Email     string     `json:"email"`
	SessionID string     `json:"session_id,omitempty"`
	At        time.Time  `json:"at"`
}

func (e AuthChanged) Type() string { return AuthTypeOf(e.Change) }

// Op is the mutation that produced a TransactionChanged event.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// TransactionChanged is emitted after a transaction write is persisted.
type TransactionChanged struct {
	Op            Op               `json:"op"`
	OwnerID       uuid.UUID        `json:"owner_id"`
	TransactionID uuid.UUID        `json:"transaction_id"`
	AccountID     uuid.UUID        `json:"account_id"`
	Kind          domain.Kind      `json:"kind"`
	Amount        decimal.Decimal  `json:"amount"`
	Direction     domain.Direction `json:"direction"`
	At            time.Time        `json:"at"`
}

func (e TransactionChanged) Type() string { return TypeTransactionChanged }

// AccountLinked is emitted when an account is linked.
type AccountLinked struct {
	OwnerID   uuid.UUID   `json:"owner_id"`
	AccountID uuid.UUID   `json:"account_id"`
	Kind      domain.Kind `json:"kind"`
	At        time.Time   `json:"at"`
}

func (e AccountLinked) Type() string { return TypeAccountLinked }

// AccountUnlinked is emitted when an account is deactivated.
type AccountUnlinked struct {
	OwnerID   uuid.UUID   `json:"owner_id"`
	AccountID uuid.UUID   `json:"account_id"`
	Kind      domain.Kind `json:"kind"`
	At        time.Time   `json:"at"`
}

func (e AccountUnlinked) Type() string { return TypeAccountUnlinked }

// Registry maps every event type to a constructor, for decoding events that
// crossed a process boundary.
func Registry() map[string]func() eventbus.Event {
	r := map[string]func() eventbus.Event{
		TypeTransactionChanged: func() eventbus.Event { return &TransactionChanged{} },
		TypeAccountLinked:      func() eventbus.Event { return &AccountLinked{} },
		TypeAccountUnlinked:    func() eventbus.Event { return &AccountUnlinked{} },
	}
	for _, c := range AuthChanges() {
		r[AuthTypeOf(c)] = func() eventbus.Event { return &AuthChanged{} }
	}
	return r
}

// As extracts an event of type T whether it was emitted as a value or, after
// decoding, as a pointer.
func As[T eventbus.Event](e eventbus.Event) (T, bool) {
	switch v := any(e).(type) {
	case T:
		return v, true
	case *T:
		if v != nil {
			return *v, true
		}
	}
	var zero T
	return zero, false
}
