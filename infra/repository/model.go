package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account represents an account record in the database.
// Version backs the compare-and-set used by every balance write.
type Account struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Username      string          `gorm:"size:50;not null"`
	IsAdmin       bool            `gorm:"not null"`
	Active        bool            `gorm:"not null"`
	CashBalance   decimal.Decimal `gorm:"type:numeric(28,8);not null"`
	BTCBalance    decimal.Decimal `gorm:"column:btc_balance;type:numeric(28,8);not null"`
	TotalInvested decimal.Decimal `gorm:"type:numeric(28,8);not null"`
	Version       int64           `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Transaction represents a persisted ledger record. Rows are insert-only.
type Transaction struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AccountID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_account_created,priority:1;uniqueIndex:idx_transactions_account_operation,priority:1"`
	OperationID      *string         `gorm:"size:128;uniqueIndex:idx_transactions_account_operation,priority:2"`
	Kind             string          `gorm:"size:32;not null"`
	Status           string          `gorm:"size:16;not null"`
	CashDelta        decimal.Decimal `gorm:"type:numeric(28,8);not null"`
	BTCDelta         decimal.Decimal `gorm:"column:btc_delta;type:numeric(28,8);not null"`
	BTCPrice         decimal.Decimal `gorm:"column:btc_price;type:numeric(28,8);not null"`
	CashBalanceAfter decimal.Decimal `gorm:"type:numeric(28,8);not null"`
	BTCBalanceAfter  decimal.Decimal `gorm:"column:btc_balance_after;type:numeric(28,8);not null"`
	Description      string          `gorm:"size:200"`
	AdminNote        string          `gorm:"size:500"`
	CreatedAt        time.Time       `gorm:"index:idx_transactions_account_created,priority:2,sort:desc"`
}

// Migrate creates or updates the ledger tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{}, &Transaction{})
}
