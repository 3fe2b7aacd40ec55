// Package events defines the notifications the ledger emits after a commit.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names.
const (
	TypeTransactionRecorded  = "TransactionRecorded"
	TypeAccountOpened        = "AccountOpened"
	TypeAccountStatusChanged = "AccountStatusChanged"
)

// TransactionRecorded is emitted once a balance change and its record are committed.
type TransactionRecorded struct {
	TransactionID    uuid.UUID       `json:"transaction_id"`
	AccountID        uuid.UUID       `json:"account_id"`
	OperationID      string          `json:"operation_id,omitempty"`
	Kind             string          `json:"kind"`
	CashDelta        decimal.Decimal `json:"cash_delta"`
	BTCDelta         decimal.Decimal `json:"btc_delta"`
	BTCPrice         decimal.Decimal `json:"btc_price"`
	CashBalanceAfter decimal.Decimal `json:"cash_balance_after"`
	BTCBalanceAfter  decimal.Decimal `json:"btc_balance_after"`
	Actor            string          `json:"actor,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

// AccountOpened is emitted when a new account is created.
type AccountOpened struct {
	AccountID  uuid.UUID `json:"account_id"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AccountStatusChanged is emitted when an admin toggles an account.
type AccountStatusChanged struct {
	AccountID  uuid.UUID `json:"account_id"`
	Active     bool      `json:"active"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e TransactionRecorded) Type() string  { return TypeTransactionRecorded }
func (e TransactionRecorded) Key() string   { return e.AccountID.String() }
func (e AccountOpened) Type() string        { return TypeAccountOpened }
func (e AccountOpened) Key() string         { return e.AccountID.String() }
func (e AccountStatusChanged) Type() string { return TypeAccountStatusChanged }
func (e AccountStatusChanged) Key() string  { return e.AccountID.String() }
