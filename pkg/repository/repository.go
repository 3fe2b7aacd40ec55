package repository

import (
	"context"

	"github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/google/uuid"
)

// AccountRepository defines the interface for account data access operations.
type AccountRepository interface {
	// Get returns domain.ErrAccountNotFound when id does not resolve.
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	Create(ctx context.Context, a *account.Account) error
	// CompareAndSet writes a only if the stored version equals expectedVersion,
	// and bumps a.Version to expectedVersion+1 on success. A lost race yields
	// domain.ErrPersistenceConflict.
	CompareAndSet(ctx context.Context, a *account.Account, expectedVersion int64) error
	List(ctx context.Context, limit, offset int) ([]*account.Account, error)
}

// TransactionFilter narrows ListByAccount. Zero values mean no filtering;
// a zero Limit means no limit.
type TransactionFilter struct {
	Kind   account.Kind
	Limit  int
	Offset int
}

// TransactionRepository defines the interface for the append-only transaction log.
type TransactionRepository interface {
	Append(ctx context.Context, tx *account.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*account.Transaction, error)
	// GetByOperationID returns domain.ErrNotFound when no record for accountID
	// carries operationID.
	GetByOperationID(ctx context.Context, accountID uuid.UUID, operationID string) (*account.Transaction, error)
	// ListByAccount returns records newest first.
	ListByAccount(ctx context.Context, accountID uuid.UUID, filter TransactionFilter) ([]*account.Transaction, error)
}
