package repository

import (
	"context"
)

// UnitOfWork defines the contract for transactional work and repository access.
//
// Do runs fn inside one transaction boundary. Repositories obtained from the
// UnitOfWork passed to fn share that boundary, so an account write and its
// transaction record either both commit or both roll back. If fn returns an
// error nothing is persisted.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	AccountRepository() (AccountRepository, error)
	TransactionRepository() (TransactionRepository, error)
}
