package settings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settings represents the per-user preferences row.
type Settings struct {
	ID                        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID                   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Theme                     string          `gorm:"type:varchar(16);not null"`
	Currency                  string          `gorm:"type:varchar(3);not null"`
	NotifyEmail               bool            `gorm:"column:notification_email;not null"`
	NotifyLowBalance          bool            `gorm:"column:notification_low_balance;not null"`
	NotifyLargeTransaction    bool            `gorm:"column:notification_large_transaction;not null"`
	LowBalanceThreshold       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	LargeTransactionThreshold decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	UpdatedAt                 time.Time
}

// TableName specifies the table name for the Settings model.
func (Settings) TableName() string {
	return "user_settings"
}

// Profile represents the user's display details.
type Profile struct {
	OwnerID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName    string    `gorm:"type:varchar(128)"`
	PhoneNumber string    `gorm:"type:varchar(32)"`
	AvatarURL   string    `gorm:"type:text"`
	UpdatedAt   time.Time
}

// TableName specifies the table name for the Profile model.
func (Profile) TableName() string {
	return "profiles"
}
