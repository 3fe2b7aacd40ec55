// Package ledger is the only writer of account balances. Every balance change
// and its transaction record are committed in one unit of work, guarded by a
// per-account lock in process and a version compare-and-set across processes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/amirasaad/btcvest/pkg/domain/events"
	"github.com/amirasaad/btcvest/pkg/eventbus"
	"github.com/amirasaad/btcvest/pkg/repository"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMaxRetries bounds conflict retries per operation.
const DefaultMaxRetries = 5

// PriceSource supplies the BTC price used at execution time.
type PriceSource interface {
	CurrentPrice(ctx context.Context) (decimal.Decimal, error)
}

// Meta carries caller supplied context for a write.
type Meta struct {
	// OperationID is an idempotency key. A repeated key for the same account
	// returns the stored result instead of applying the change again.
	OperationID string
	// Description overrides the generated description when set.
	Description string
	// AdminNote overrides the generated admin note when set.
	AdminNote string
	// Actor is the username performing the operation.
	Actor string
}

// Result is the outcome of a balance-changing operation.
type Result struct {
	Account     *account.Account
	Transaction *account.Transaction
	// Replayed is true when the result was served from an earlier operation
	// with the same OperationID.
	Replayed bool
}

// Service implements the ledger operations.
type Service struct {
	uow        repository.UnitOfWork
	prices     PriceSource
	bus        eventbus.Bus
	logger     *slog.Logger
	locks      *accountLocks
	maxRetries uint64
	newBackOff func() backoff.BackOff
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithEventBus publishes events to bus after each commit.
func WithEventBus(bus eventbus.Bus) Option {
	return func(s *Service) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithMaxRetries sets how many times a conflicting write is retried.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = uint64(n)
		}
	}
}

// WithBackOff replaces the retry schedule.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(s *Service) { s.newBackOff = fn }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a ledger Service.
func New(uow repository.UnitOfWork, prices PriceSource, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		uow:        uow,
		prices:     prices,
		bus:        eventbus.Nop{},
		logger:     logger.With("service", "ledger"),
		locks:      newAccountLocks(),
		maxRetries: DefaultMaxRetries,
		newBackOff: defaultBackOff,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

type mutation func(a *account.Account) (account.Effect, error)

// apply runs mutate against the current account state and commits the new
// state with its record. Conflicts are retried with backoff; everything else
// is returned as is.
func (s *Service) apply(
	ctx context.Context,
	op string,
	accountID uuid.UUID,
	meta Meta,
	mutate mutation,
	describe func(account.Effect) (description, adminNote string),
) (*Result, error) {
	logger := s.logger.With("op", op, "account_id", accountID, "operation_id", meta.OperationID)

	unlock := s.locks.Lock(accountID)
	defer unlock()

	var res *Result
	attempt := func() error {
		res = nil
		err := s.uow.Do(ctx, func(u repository.UnitOfWork) error {
			accounts, err := u.AccountRepository()
			if err != nil {
				return err
			}
			txs, err := u.TransactionRepository()
			if err != nil {
				return err
			}

			if meta.OperationID != "" {
				prev, err := txs.GetByOperationID(ctx, accountID, meta.OperationID)
				switch {
				case err == nil:
					a, err := accounts.Get(ctx, accountID)
					if err != nil {
						return err
					}
					res = &Result{Account: a, Transaction: prev, Replayed: true}
					return nil
				case !errors.Is(err, domain.ErrNotFound):
					return err
				}
			}

			a, err := accounts.Get(ctx, accountID)
			if err != nil {
				return err
			}
			expected := a.Version
			effect, err := mutate(a)
			if err != nil {
				return err
			}
			desc, note := describe(effect)
			if meta.Description != "" {
				desc = meta.Description
			}
			if meta.AdminNote != "" {
				note = meta.AdminNote
			}
			tx, err := account.NewTransaction(a, effect,
				account.WithOperationID(meta.OperationID),
				account.WithDescription(desc),
				account.WithAdminNote(note),
				account.WithCreatedAt(s.now()),
			)
			if err != nil {
				return err
			}
			if err := accounts.CompareAndSet(ctx, a, expected); err != nil {
				return err
			}
			if err := txs.Append(ctx, tx); err != nil {
				return err
			}
			res = &Result{Account: a, Transaction: tx}
			return nil
		})
		return classify(err, meta)
	}

	if err := s.retry(ctx, logger, attempt); err != nil {
		return nil, normalize(err)
	}

	if res.Replayed {
		logger.Info("Operation replayed", "transaction_id", res.Transaction.ID)
		return res, nil
	}
	logger.Info("Transaction recorded",
		"transaction_id", res.Transaction.ID,
		"kind", res.Transaction.Kind,
		"cash_delta", res.Transaction.CashDelta,
		"btc_delta", res.Transaction.BTCDelta,
	)
	s.publish(ctx, events.TransactionRecorded{
		TransactionID:    res.Transaction.ID,
		AccountID:        accountID,
		OperationID:      res.Transaction.OperationID,
		Kind:             string(res.Transaction.Kind),
		CashDelta:        res.Transaction.CashDelta,
		BTCDelta:         res.Transaction.BTCDelta,
		BTCPrice:         res.Transaction.BTCPrice,
		CashBalanceAfter: res.Transaction.CashBalanceAfter,
		BTCBalanceAfter:  res.Transaction.BTCBalanceAfter,
		Actor:            meta.Actor,
		OccurredAt:       res.Transaction.CreatedAt,
	})
	return res, nil
}

// classify marks errors that retrying cannot fix as permanent. A duplicate
// operation key means a concurrent writer recorded the same operation first;
// the retry observes it through the replay path.
func classify(err error, meta Meta) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrPersistenceConflict):
		return err
	case errors.Is(err, domain.ErrAlreadyExists) && meta.OperationID != "":
		return err
	default:
		return backoff.Permanent(err)
	}
}

func normalize(err error) error {
	if errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	return err
}

func (s *Service) retry(ctx context.Context, logger *slog.Logger, op backoff.Operation) error {
	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.maxRetries), ctx)
	return backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		logger.Warn("Write conflict, retrying", "error", err, "backoff", d)
	})
}

// publish is best effort: the write is already committed.
func (s *Service) publish(ctx context.Context, e eventbus.Event) {
	if err := s.bus.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Error("Failed to publish event", "event_type", e.Type(), "error", err)
	}
}

func validateMeta(meta Meta) error {
	return account.ValidateText(meta.Description, meta.AdminNote)
}
