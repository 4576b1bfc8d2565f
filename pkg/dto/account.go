package dto

import (
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/google/uuid"
)

// AccountLink is the input for linking an institution account.
type AccountLink struct {
	OwnerID       uuid.UUID
	Kind          domain.Kind
	AccountNumber string
	Name          string
	Branch        string
	Subtype       string
}

// AccountUpdate carries the mutable account fields; nil fields are left untouched.
type AccountUpdate struct {
	Name     *string
	IsActive *bool
	Branch   *string
	Subtype  *string
}
