package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Theme is the display theme preference.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

func (t Theme) Valid() bool {
	switch t {
	case ThemeSystem, ThemeLight, ThemeDark:
		return true
	}
	return false
}

// Settings is the per-user preferences row. There is exactly one per user.
type Settings struct {
	ID                        uuid.UUID       `json:"id"`
	OwnerID                   uuid.UUID       `json:"owner_id"`
	Theme                     Theme           `json:"theme"`
	Currency                  string          `json:"currency"`
	NotifyEmail               bool            `json:"notification_email"`
	NotifyLowBalance          bool            `json:"notification_low_balance"`
	NotifyLargeTransaction    bool            `json:"notification_large_transaction"`
	LowBalanceThreshold       decimal.Decimal `json:"low_balance_threshold"`
	LargeTransactionThreshold decimal.Decimal `json:"large_transaction_threshold"`
	UpdatedAt                 time.Time       `json:"updated_at"`
}

var (
	defaultLowBalanceThreshold       = decimal.NewFromInt(1000)
	defaultLargeTransactionThreshold = decimal.NewFromInt(10000)
)

// DefaultSettings returns a fresh default row for ownerID.
func DefaultSettings(ownerID uuid.UUID) *Settings {
	return &Settings{
		ID:                        uuid.New(),
		OwnerID:                   ownerID,
		Theme:                     ThemeSystem,
		Currency:                  DefaultCurrency,
		NotifyEmail:               true,
		NotifyLowBalance:          true,
		NotifyLargeTransaction:    true,
		LowBalanceThreshold:       defaultLowBalanceThreshold,
		LargeTransactionThreshold: defaultLargeTransactionThreshold,
		UpdatedAt:                 time.Now().UTC(),
	}
}

// Profile holds the user's display details.
type Profile struct {
	OwnerID     uuid.UUID `json:"owner_id"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SettingsOverview groups settings the way the settings page edits them.
type SettingsOverview struct {
	Profile       Profile                 `json:"profile"`
	Account       AccountPreferences      `json:"account"`
	Notifications NotificationPreferences `json:"notifications"`
}

type AccountPreferences struct {
	Theme    Theme  `json:"theme"`
	Currency string `json:"currency"`
}

type NotificationPreferences struct {
	EmailNotifications        bool            `json:"email_notifications"`
	LowBalanceAlerts          bool            `json:"low_balance_alerts"`
	LargeTransactionAlerts    bool            `json:"large_transaction_alerts"`
	LowBalanceThreshold       decimal.Decimal `json:"low_balance_threshold"`
	LargeTransactionThreshold decimal.Decimal `json:"large_transaction_threshold"`
}

// NewSettingsOverview combines a profile and a settings row.
func NewSettingsOverview(p *Profile, s *Settings) *SettingsOverview {
	o := &SettingsOverview{
		Account: AccountPreferences{Theme: s.Theme, Currency: s.Currency},
		Notifications: NotificationPreferences{
			EmailNotifications:        s.NotifyEmail,
			LowBalanceAlerts:          s.NotifyLowBalance,
			LargeTransactionAlerts:    s.NotifyLargeTransaction,
			LowBalanceThreshold:       s.LowBalanceThreshold,
			LargeTransactionThreshold: s.LargeTransactionThreshold,
		},
	}
	if p != nil {
		o.Profile = *p
	} else {
		o.Profile = Profile{OwnerID: s.OwnerID}
	}
	return o
}
