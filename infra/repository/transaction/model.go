package transaction

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Transaction represents a transaction record in the database. Seq is the
// insertion order and breaks ties between equal dates.
type Transaction struct {
	Seq         int64           `gorm:"primaryKey;autoIncrement"`
	ID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	AccountID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_account_date,priority:1"`
	Kind        string          `gorm:"type:varchar(16);not null"`
	Date        time.Time       `gorm:"not null;index:idx_transactions_account_date,priority:2"`
	Description string          `gorm:"type:text;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Direction   string          `gorm:"type:varchar(8);not null"`
	Category    string          `gorm:"type:varchar(64)"`
	Reference   string          `gorm:"type:varchar(64)"`
	Status      string          `gorm:"type:varchar(32);not null"`
	Metadata    jsonMap
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the table name for the Transaction model.
func (Transaction) TableName() string {
	return "transactions"
}

// jsonMap stores free-form metadata as a JSON document.
type jsonMap map[string]any

func (m jsonMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *jsonMap) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("metadata: unsupported column type")
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

func (jsonMap) GormDataType() string { return "json" }

// GormDBDataType picks a native JSON column per dialect.
func (jsonMap) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Name() == "postgres" {
		return "JSONB"
	}
	return "JSON"
}
