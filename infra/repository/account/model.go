package account

import (
	"time"

	"github.com/google/uuid"
)

// Account represents an account record in the database. The partial unique
// index keeps at most one active row per owner, kind and number.
type Account struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID       uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_accounts_active_number,where:is_active = true"`
	Kind          string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_accounts_active_number,where:is_active = true"`
	AccountNumber string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_accounts_active_number,where:is_active = true"`
	Name          string    `gorm:"type:varchar(128)"`
	IsActive      bool      `gorm:"not null"`
	Branch        string    `gorm:"type:varchar(128)"`
	Subtype       string    `gorm:"type:varchar(64)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string {
	return "accounts"
}
