package settings

import "github.com/shopspring/decimal"

// ProfileRequest carries the profile form; omitted fields are unchanged.
type ProfileRequest struct {
	FullName    *string `json:"full_name" validate:"omitempty,max=128"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=32"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url"`
}

// PreferencesRequest carries the display preferences form.
type PreferencesRequest struct {
	Theme    *string `json:"theme"`
	Currency *string `json:"currency"`
}

// NotificationsRequest carries the alert switches and thresholds.
type NotificationsRequest struct {
	EmailNotifications        *bool            `json:"email_notifications"`
	LowBalanceAlerts          *bool            `json:"low_balance_alerts"`
	LargeTransactionAlerts    *bool            `json:"large_transaction_alerts"`
	LowBalanceThreshold       *decimal.Decimal `json:"low_balance_threshold"`
	LargeTransactionThreshold *decimal.Decimal `json:"large_transaction_threshold"`
}

// PasswordRequest is the security form.
type PasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}
