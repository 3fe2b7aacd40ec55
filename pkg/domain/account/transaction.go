package account

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field limits for transaction text.
const (
	MaxDescriptionLength = 200
	MaxAdminNoteLength   = 500
)

// Kind classifies a ledger record.
type Kind string

// Transaction kinds.
const (
	KindDeposit         Kind = "deposit"
	KindWithdrawal      Kind = "withdrawal"
	KindInvestment      Kind = "investment"
	KindProfit          Kind = "profit"
	KindAdminAdjustment Kind = "admin_adjustment"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindInvestment, KindProfit, KindAdminAdjustment:
		return true
	}
	return false
}

// Manual reports whether k may be recorded by an admin manual entry.
func (k Kind) Manual() bool {
	return k.Valid() && k != KindAdminAdjustment
}

// Status is the lifecycle state of a record. Every current operation writes
// StatusCompleted; the others are kept for records imported from elsewhere.
type Status string

// Transaction statuses.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Direction selects add or subtract for admin adjustments.
type Direction string

// Adjustment directions.
const (
	DirectionAdd      Direction = "add"
	DirectionSubtract Direction = "subtract"
)

// Valid reports whether d is add or subtract.
func (d Direction) Valid() bool {
	return d == DirectionAdd || d == DirectionSubtract
}

// Transaction is an immutable ledger record. Corrections are new offsetting
// records; nothing updates a Transaction after it is appended.
type Transaction struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	OperationID string
	Kind        Kind
	Status      Status
	CashDelta   decimal.Decimal
	BTCDelta    decimal.Decimal
	BTCPrice    decimal.Decimal
	// Balance snapshot after the operation was applied.
	CashBalanceAfter decimal.Decimal
	BTCBalanceAfter  decimal.Decimal
	Description      string
	AdminNote        string
	CreatedAt        time.Time
}

// TransactionOption customizes a new Transaction.
type TransactionOption func(*Transaction)

// WithOperationID sets the idempotency key.
func WithOperationID(id string) TransactionOption {
	return func(tx *Transaction) { tx.OperationID = id }
}

// WithDescription sets the human readable description.
func WithDescription(desc string) TransactionOption {
	return func(tx *Transaction) { tx.Description = desc }
}

// WithAdminNote sets the admin note.
func WithAdminNote(note string) TransactionOption {
	return func(tx *Transaction) { tx.AdminNote = note }
}

// WithCreatedAt overrides the creation timestamp.
func WithCreatedAt(t time.Time) TransactionOption {
	return func(tx *Transaction) { tx.CreatedAt = t }
}

// NewTransaction builds a completed record for effect, snapshotting the
// balances of a after the effect was applied.
func NewTransaction(a *Account, effect Effect, opts ...TransactionOption) (*Transaction, error) {
	tx := &Transaction{
		ID:               uuid.New(),
		AccountID:        a.ID,
		Kind:             effect.Kind,
		Status:           StatusCompleted,
		CashDelta:        effect.CashDelta,
		BTCDelta:         effect.BTCDelta,
		BTCPrice:         effect.BTCPrice,
		CashBalanceAfter: a.CashBalance,
		BTCBalanceAfter:  a.BTCBalance,
		CreatedAt:        time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(tx)
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// Validate checks the record's enums and text limits.
func (tx *Transaction) Validate() error {
	if !tx.Kind.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidKind, tx.Kind)
	}
	if !tx.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, tx.Status)
	}
	if tx.BTCPrice.IsNegative() {
		return fmt.Errorf("%w: btc price cannot be negative", domain.ErrValidation)
	}
	return ValidateText(tx.Description, tx.AdminNote)
}

// ValidateText checks description and admin note lengths.
func ValidateText(description, adminNote string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", domain.ErrValidation, MaxDescriptionLength)
	}
	if utf8.RuneCountInString(adminNote) > MaxAdminNoteLength {
		return fmt.Errorf("%w: admin note exceeds %d characters", domain.ErrValidation, MaxAdminNoteLength)
	}
	return nil
}

// NewTransactionFromData creates a Transaction from raw data (used for DB hydration or test fixtures).
// This bypasses invariants and should only be used for repository hydration or tests.
func NewTransactionFromData(
	id, accountID uuid.UUID,
	operationID string,
	kind Kind,
	status Status,
	cashDelta, btcDelta, btcPrice decimal.Decimal,
	cashAfter, btcAfter decimal.Decimal,
	description, adminNote string,
	created time.Time,
) *Transaction {
	return &Transaction{
		ID:               id,
		AccountID:        accountID,
		OperationID:      operationID,
		Kind:             kind,
		Status:           status,
		CashDelta:        cashDelta,
		BTCDelta:         btcDelta,
		BTCPrice:         btcPrice,
		CashBalanceAfter: cashAfter,
		BTCBalanceAfter:  btcAfter,
		Description:      description,
		AdminNote:        adminNote,
		CreatedAt:        created,
	}
}
