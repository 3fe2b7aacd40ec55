package ledger

import (
	"context"
	"fmt"

	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/amirasaad/btcvest/pkg/domain/events"
	"github.com/amirasaad/btcvest/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deposit credits amount to the account's cash balance.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, meta Meta) (*Result, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if err := validateMeta(meta); err != nil {
		return nil, err
	}
	return s.apply(ctx, "deposit", accountID, meta,
		func(a *account.Account) (account.Effect, error) {
			return a.Deposit(amount)
		},
		func(account.Effect) (string, string) {
			return "Deposit", ""
		},
	)
}

// Invest converts amount of cash into BTC at the current price. The cash
// balance must cover the whole amount; nothing is written otherwise.
func (s *Service) Invest(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, meta Meta) (*Result, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if err := validateMeta(meta); err != nil {
		return nil, err
	}
	price, err := s.currentPrice(ctx)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, "invest", accountID, meta,
		func(a *account.Account) (account.Effect, error) {
			return a.Invest(amount, price)
		},
		func(account.Effect) (string, string) {
			return fmt.Sprintf("Invested $%s in Bitcoin", amount.StringFixed(2)), ""
		},
	)
}

// AdjustCash adds to or subtracts from the cash balance. Subtraction clamps
// at zero and the record keeps the requested amount.
func (s *Service) AdjustCash(ctx context.Context, accountID uuid.UUID, dir account.Direction, amount decimal.Decimal, meta Meta) (*Result, error) {
	if err := validateAdjustment(dir, amount, meta); err != nil {
		return nil, err
	}
	return s.apply(ctx, "adjust_cash", accountID, meta,
		func(a *account.Account) (account.Effect, error) {
			return a.AdjustCash(dir, amount)
		},
		func(account.Effect) (string, string) {
			return fmt.Sprintf("Admin adjustment: %s $%s", verb(dir), amount.StringFixed(2)),
				"Admin adjustment by " + meta.Actor
		},
	)
}

// AdjustBTC adds to or subtracts from the BTC balance, recording the current
// price on the transaction.
func (s *Service) AdjustBTC(ctx context.Context, accountID uuid.UUID, dir account.Direction, amount decimal.Decimal, meta Meta) (*Result, error) {
	if err := validateAdjustment(dir, amount, meta); err != nil {
		return nil, err
	}
	price, err := s.currentPrice(ctx)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, "adjust_btc", accountID, meta,
		func(a *account.Account) (account.Effect, error) {
			return a.AdjustBTC(dir, amount, price)
		},
		func(account.Effect) (string, string) {
			return fmt.Sprintf("Admin BTC adjustment: %s %s BTC", verb(dir), amount.String()),
				"BTC adjustment by " + meta.Actor
		},
	)
}

// ManualEntry is an admin-authored transaction of an arbitrary manual kind.
type ManualEntry struct {
	AccountID uuid.UUID
	Kind      account.Kind
	// Amount is the cash amount. Required for every kind.
	Amount decimal.Decimal
	// BTCAmount is the BTC credited by investment and profit entries. An
	// investment without it buys at the current price.
	BTCAmount decimal.Decimal
	Meta
}

// RecordManual applies a manual entry. Withdrawals clamp at zero; investments
// require enough cash.
func (s *Service) RecordManual(ctx context.Context, entry ManualEntry) (*Result, error) {
	if !entry.Kind.Manual() {
		return nil, domain.ErrInvalidKind
	}
	if !entry.Amount.IsPositive() || entry.BTCAmount.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	if entry.Kind == account.KindProfit && !entry.BTCAmount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if err := validateMeta(entry.Meta); err != nil {
		return nil, err
	}

	price := decimal.Zero
	if entry.Kind == account.KindInvestment || entry.Kind == account.KindProfit {
		p, err := s.currentPrice(ctx)
		if err != nil {
			return nil, err
		}
		price = p
	}
	btcAmount := entry.BTCAmount
	if entry.Kind == account.KindInvestment && btcAmount.IsZero() {
		btcAmount = account.BTCFor(entry.Amount, price)
	}

	return s.apply(ctx, "record_manual", entry.AccountID, entry.Meta,
		func(a *account.Account) (account.Effect, error) {
			switch entry.Kind {
			case account.KindDeposit:
				return a.Deposit(entry.Amount)
			case account.KindWithdrawal:
				return a.Withdraw(entry.Amount)
			case account.KindInvestment:
				return a.RecordInvestment(entry.Amount, btcAmount, price)
			default:
				return a.CreditProfit(btcAmount, price)
			}
		},
		func(account.Effect) (string, string) {
			return "Admin transaction: " + string(entry.Kind),
				"Manual transaction by " + entry.Actor
		},
	)
}

// SetActive changes the account status. Administrators cannot be
// deactivated. No transaction is recorded.
func (s *Service) SetActive(ctx context.Context, accountID uuid.UUID, active bool, actor string) (*account.Account, error) {
	logger := s.logger.With("op", "set_active", "account_id", accountID, "active", active)

	unlock := s.locks.Lock(accountID)
	defer unlock()

	var (
		updated *account.Account
		changed bool
	)
	err := s.retry(ctx, logger, func() error {
		changed = false
		err := s.uow.Do(ctx, func(u repository.UnitOfWork) error {
			accounts, err := u.AccountRepository()
			if err != nil {
				return err
			}
			a, err := accounts.Get(ctx, accountID)
			if err != nil {
				return err
			}
			if a.Active == active {
				updated = a
				return nil
			}
			expected := a.Version
			if err := a.SetActive(active); err != nil {
				return err
			}
			if err := accounts.CompareAndSet(ctx, a, expected); err != nil {
				return err
			}
			updated, changed = a, true
			return nil
		})
		return classify(err, Meta{})
	})
	if err != nil {
		return nil, err
	}
	if changed {
		logger.Info("Account status changed", "actor", actor)
		s.publish(ctx, events.AccountStatusChanged{
			AccountID:  accountID,
			Active:     active,
			Actor:      actor,
			OccurredAt: updated.UpdatedAt,
		})
	}
	return updated, nil
}

// OpenAccountRequest describes a new account.
type OpenAccountRequest struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Username string
	IsAdmin  bool
}

// OpenAccount creates an active account with zero balances.
func (s *Service) OpenAccount(ctx context.Context, req OpenAccountRequest) (*account.Account, error) {
	b := account.New().WithUsername(req.Username).WithAdmin(req.IsAdmin)
	if req.ID != uuid.Nil {
		b = b.WithID(req.ID)
	}
	if req.UserID != uuid.Nil {
		b = b.WithUserID(req.UserID)
	}
	now := s.now()
	b = b.WithCreatedAt(now).WithUpdatedAt(now)
	a, err := b.Build()
	if err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(u repository.UnitOfWork) error {
		accounts, err := u.AccountRepository()
		if err != nil {
			return err
		}
		return accounts.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Account opened", "account_id", a.ID, "username", a.Username)
	s.publish(ctx, events.AccountOpened{AccountID: a.ID, Username: a.Username, OccurredAt: a.CreatedAt})
	return a, nil
}

func (s *Service) currentPrice(ctx context.Context) (decimal.Decimal, error) {
	price, err := s.prices.CurrentPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, domain.ErrPriceUnavailable
	}
	return price, nil
}

func validateAdjustment(dir account.Direction, amount decimal.Decimal, meta Meta) error {
	if !dir.Valid() {
		return domain.ErrInvalidDirection
	}
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	return validateMeta(meta)
}

func verb(dir account.Direction) string {
	if dir == account.DirectionSubtract {
		return "Subtracted"
	}
	return "Added"
}
