package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BTCScale is the number of decimal places kept for BTC amounts (1 satoshi).
const BTCScale = 8

// Account holds a user's cash balance, BTC balance and cumulative invested amount.
// It acts as an aggregate root: every balance change goes through one of its
// operation methods, which return the Effect the ledger records.
//
// Invariants:
//   - CashBalance, BTCBalance and TotalInvested are never negative.
//   - Subtract-type operations clamp at zero; Invest fails instead.
//   - Version increases by one on every persisted write.
type Account struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Username      string
	IsAdmin       bool
	Active        bool
	CashBalance   decimal.Decimal
	BTCBalance    decimal.Decimal
	TotalInvested decimal.Decimal
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Builder provides a fluent API for constructing Account instances.
type Builder struct {
	id            uuid.UUID
	userID        uuid.UUID
	username      string
	isAdmin       bool
	active        bool
	cash          decimal.Decimal
	btc           decimal.Decimal
	totalInvested decimal.Decimal
	version       int64
	createdAt     time.Time
	updatedAt     time.Time
}

// New creates a new Builder with sensible defaults: a fresh ID, active, zero balances.
func New() *Builder {
	now := time.Now().UTC()
	return &Builder{
		id:        uuid.New(),
		active:    true,
		createdAt: now,
		updatedAt: now,
	}
}

// WithID sets the ID for the account being built.
func (b *Builder) WithID(id uuid.UUID) *Builder {
	b.id = id
	return b
}

// WithUserID sets the owning user. Defaults to the account ID when unset.
func (b *Builder) WithUserID(userID uuid.UUID) *Builder {
	b.userID = userID
	return b
}

// WithUsername sets the username. This is a mandatory field.
func (b *Builder) WithUsername(username string) *Builder {
	b.username = username
	return b
}

// WithAdmin marks the account as belonging to an administrator.
func (b *Builder) WithAdmin(isAdmin bool) *Builder {
	b.isAdmin = isAdmin
	return b
}

// WithActive sets the active flag.
func (b *Builder) WithActive(active bool) *Builder {
	b.active = active
	return b
}

// WithBalances sets the balances. This should only be used for hydrating an
// existing account from a data store or for test setup.
func (b *Builder) WithBalances(cash, btc, totalInvested decimal.Decimal) *Builder {
	b.cash = cash
	b.btc = btc
	b.totalInvested = totalInvested
	return b
}

// WithVersion sets the persisted version, for hydration.
func (b *Builder) WithVersion(v int64) *Builder {
	b.version = v
	return b
}

// WithCreatedAt sets the creation timestamp, for hydration.
func (b *Builder) WithCreatedAt(t time.Time) *Builder {
	b.createdAt = t
	return b
}

// WithUpdatedAt sets the last-updated timestamp, for hydration.
func (b *Builder) WithUpdatedAt(t time.Time) *Builder {
	b.updatedAt = t
	return b
}

// Build validates all invariants and returns the Account.
func (b *Builder) Build() (*Account, error) {
	if b.username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	userID := b.userID
	if userID == uuid.Nil {
		userID = b.id
	}
	a := &Account{
		ID:            b.id,
		UserID:        userID,
		Username:      b.username,
		IsAdmin:       b.isAdmin,
		Active:        b.active,
		CashBalance:   b.cash,
		BTCBalance:    b.btc,
		TotalInvested: b.totalInvested,
		Version:       b.version,
		CreatedAt:     b.createdAt,
		UpdatedAt:     b.updatedAt,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate enforces the non-negativity invariant. Stores call it before every
// write so a bug upstream can never persist a negative balance.
func (a *Account) Validate() error {
	if a.CashBalance.IsNegative() {
		return fmt.Errorf("%w: cash balance %s", domain.ErrNegativeBalance, a.CashBalance)
	}
	if a.BTCBalance.IsNegative() {
		return fmt.Errorf("%w: btc balance %s", domain.ErrNegativeBalance, a.BTCBalance)
	}
	if a.TotalInvested.IsNegative() {
		return fmt.Errorf("%w: total invested %s", domain.ErrNegativeBalance, a.TotalInvested)
	}
	return nil
}

// Clone returns an independent copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}

// Effect describes the balance change an operation applied, as it will be
// written to the transaction log. Deltas are the requested amounts, signed.
type Effect struct {
	Kind      Kind
	CashDelta decimal.Decimal
	BTCDelta  decimal.Decimal
	BTCPrice  decimal.Decimal
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	}
	return nil
}

// subtractClamped returns max(0, balance-amount).
func subtractClamped(balance, amount decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, balance.Sub(amount))
}

// Deposit adds cash to the account.
func (a *Account) Deposit(amount decimal.Decimal) (Effect, error) {
	if err := validateAmount(amount); err != nil {
		return Effect{}, err
	}
	a.CashBalance = a.CashBalance.Add(amount)
	return Effect{Kind: KindDeposit, CashDelta: amount}, nil
}

// Withdraw removes cash, clamping the balance at zero.
func (a *Account) Withdraw(amount decimal.Decimal) (Effect, error) {
	if err := validateAmount(amount); err != nil {
		return Effect{}, err
	}
	a.CashBalance = subtractClamped(a.CashBalance, amount)
	return Effect{Kind: KindWithdrawal, CashDelta: amount.Neg()}, nil
}

// BTCFor returns the BTC bought by amount at price, rounded to BTCScale places.
func BTCFor(amount, price decimal.Decimal) decimal.Decimal {
	return amount.DivRound(price, BTCScale)
}

// Invest converts cash into BTC at price. Unlike the subtract-type adjustments
// it never clamps: the cash balance must cover the whole amount.
func (a *Account) Invest(amount, price decimal.Decimal) (Effect, error) {
	if err := validateAmount(amount); err != nil {
		return Effect{}, err
	}
	if err := validatePrice(price); err != nil {
		return Effect{}, err
	}
	return a.invest(amount, BTCFor(amount, price), price)
}

// RecordInvestment applies an investment whose BTC amount was decided elsewhere
// (admin manual entries). The cash balance must still cover the amount.
func (a *Account) RecordInvestment(amount, btcAmount, price decimal.Decimal) (Effect, error) {
	if err := validateAmount(amount); err != nil {
		return Effect{}, err
	}
	if btcAmount.IsNegative() {
		return Effect{}, domain.ErrInvalidAmount
	}
	return a.invest(amount, btcAmount, price)
}

func (a *Account) invest(amount, btcAmount, price decimal.Decimal) (Effect, error) {
	if a.CashBalance.LessThan(amount) {
		return Effect{}, ErrInsufficientFunds
	}
	a.CashBalance = a.CashBalance.Sub(amount)
	a.BTCBalance = a.BTCBalance.Add(btcAmount)
	a.TotalInvested = a.TotalInvested.Add(amount)
	return Effect{
		Kind:      KindInvestment,
		CashDelta: amount.Neg(),
		BTCDelta:  btcAmount,
		BTCPrice:  price,
	}, nil
}

// CreditProfit adds BTC earned as profit.
func (a *Account) CreditProfit(btcAmount, price decimal.Decimal) (Effect, error) {
	if err := validateAmount(btcAmount); err != nil {
		return Effect{}, err
	}
	a.BTCBalance = a.BTCBalance.Add(btcAmount)
	return Effect{Kind: KindProfit, BTCDelta: btcAmount, BTCPrice: price}, nil
}

// AdjustCash applies an admin correction to the cash balance. Subtract clamps
// at zero; the effect still carries the requested delta.
func (a *Account) AdjustCash(dir Direction, amount decimal.Decimal) (Effect, error) {
	if err := validateAmount(amount); err != nil {
		return Effect{}, err
	}
	switch dir {
	case DirectionAdd:
		a.CashBalance = a.CashBalance.Add(amount)
		return Effect{Kind: KindAdminAdjustment, CashDelta: amount}, nil
	case DirectionSubtract:
		a.CashBalance = subtractClamped(a.CashBalance, amount)
		return Effect{Kind: KindAdminAdjustment, CashDelta: amount.Neg()}, nil
	default:
		return Effect{}, domain.ErrInvalidDirection
	}
}

// AdjustBTC applies an admin correction to the BTC balance, recording price as
// the reference price at execution.
func (a *Account) AdjustBTC(dir Direction, amount, price decimal.Decimal) (Effect, error) {
	if err := validateAmount(amount); err != nil {
		return Effect{}, err
	}
	switch dir {
	case DirectionAdd:
		a.BTCBalance = a.BTCBalance.Add(amount)
		return Effect{Kind: KindAdminAdjustment, BTCDelta: amount, BTCPrice: price}, nil
	case DirectionSubtract:
		a.BTCBalance = subtractClamped(a.BTCBalance, amount)
		return Effect{Kind: KindAdminAdjustment, BTCDelta: amount.Neg(), BTCPrice: price}, nil
	default:
		return Effect{}, domain.ErrInvalidDirection
	}
}

// SetActive toggles the account status. Administrators cannot be deactivated.
func (a *Account) SetActive(active bool) error {
	if !active && a.IsAdmin {
		return ErrForbiddenOperation
	}
	a.Active = active
	return nil
}

// Re-exported so callers of this package can match without importing domain.
var (
	ErrInsufficientFunds  = domain.ErrInsufficientFunds
	ErrForbiddenOperation = domain.ErrForbiddenOperation
)

// IsValidationError reports whether err is an input error the caller should fix.
func IsValidationError(err error) bool {
	return errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrInvalidDirection) ||
		errors.Is(err, domain.ErrInvalidKind) ||
		errors.Is(err, domain.ErrValidation)
}
