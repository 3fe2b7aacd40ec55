package ledger

import (
	"context"

	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/amirasaad/btcvest/pkg/repository"
	"github.com/google/uuid"
)

// History page bounds.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// Account returns the current state of an account.
func (s *Service) Account(ctx context.Context, accountID uuid.UUID) (*account.Account, error) {
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return accounts.Get(ctx, accountID)
}

// Accounts lists accounts oldest first.
func (s *Service) Accounts(ctx context.Context, limit, offset int) ([]*account.Account, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = DefaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return accounts.List(ctx, limit, offset)
}

// Portfolio values the account at the current BTC price.
func (s *Service) Portfolio(ctx context.Context, accountID uuid.UUID) (account.Portfolio, error) {
	a, err := s.Account(ctx, accountID)
	if err != nil {
		return account.Portfolio{}, err
	}
	price, err := s.currentPrice(ctx)
	if err != nil {
		return account.Portfolio{}, err
	}
	return a.Valuate(price), nil
}

// History returns the account's transactions newest first.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, filter repository.TransactionFilter) ([]*account.Transaction, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, domain.ErrInvalidKind
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	if filter.Limit > MaxHistoryLimit {
		filter.Limit = MaxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if _, err := s.Account(ctx, accountID); err != nil {
		return nil, err
	}
	txs, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	return txs.ListByAccount(ctx, accountID, filter)
}
