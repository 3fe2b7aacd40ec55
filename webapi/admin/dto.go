package admin

import (
	"github.com/shopspring/decimal"
)

// AdjustRequest changes a cash or BTC balance.
type AdjustRequest struct {
	Direction string          `json:"direction" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	AdminNote string          `json:"admin_note" validate:"max=500"`
}

// StatusRequest activates or deactivates an account.
type StatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// ManualTransactionRequest records an admin-authored transaction.
type ManualTransactionRequest struct {
	AccountID   string          `json:"account_id" validate:"required,uuid"`
	Kind        string          `json:"kind" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	BTCAmount   decimal.Decimal `json:"btc_amount"`
	Description string          `json:"description" validate:"max=200"`
	AdminNote   string          `json:"admin_note" validate:"max=500"`
}

// OpenAccountRequest creates an account for a user registered elsewhere.
type OpenAccountRequest struct {
	ID       string `json:"id" validate:"omitempty,uuid"`
	Username string `json:"username" validate:"required,max=50"`
	IsAdmin  bool   `json:"is_admin"`
}
