package dto

import (
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/shopspring/decimal"
)

type ProfileUpdate struct {
	FullName    *string
	PhoneNumber *string
	AvatarURL   *string
}

type PreferencesUpdate struct {
	Theme    *domain.Theme
	Currency *string
}

type NotificationsUpdate struct {
	Email                     *bool
	LowBalance                *bool
	LargeTransaction          *bool
	LowBalanceThreshold       *decimal.Decimal
	LargeTransactionThreshold *decimal.Decimal
}

// PasswordUpdate mirrors the security form: current, new and confirmation.
type PasswordUpdate struct {
	Current string
	New     string
	Confirm string
}
