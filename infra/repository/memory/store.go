// Package memory provides an in-process implementation of the repository
// contracts. Work inside Do is staged and applied atomically at commit, with
// the same version check the database store performs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/amirasaad/btcvest/pkg/repository"
	"github.com/google/uuid"
)

type opKey struct {
	accountID   uuid.UUID
	operationID string
}

// Store holds accounts and the transaction log.
type Store struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]*account.Account
	transactions map[uuid.UUID]*account.Transaction
	byAccount    map[uuid.UUID][]uuid.UUID
	byOperation  map[opKey]uuid.UUID
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[uuid.UUID]*account.Account),
		transactions: make(map[uuid.UUID]*account.Transaction),
		byAccount:    make(map[uuid.UUID][]uuid.UUID),
		byOperation:  make(map[opKey]uuid.UUID),
	}
}

// UoW implements repository.UnitOfWork over a Store. Outside Do every
// repository call is applied immediately.
type UoW struct {
	store *Store
	work  *work
}

// NewUoW creates a unit of work over store.
func NewUoW(store *Store) *UoW {
	return &UoW{store: store}
}

// Do stages every write made through fn and commits them together if fn
// returns nil. A version mismatch at commit yields domain.ErrPersistenceConflict.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w := newWork()
	if err := fn(&UoW{store: u.store, work: w}); err != nil {
		return err
	}
	return u.store.commit(w)
}

// AccountRepository returns an account repository bound to the current unit of work.
func (u *UoW) AccountRepository() (repository.AccountRepository, error) {
	return &accountRepository{store: u.store, work: u.work}, nil
}

// TransactionRepository returns a transaction repository bound to the current unit of work.
func (u *UoW) TransactionRepository() (repository.TransactionRepository, error) {
	return &transactionRepository{store: u.store, work: u.work}, nil
}

type update struct {
	acct    *account.Account
	version int64
}

type work struct {
	created  map[uuid.UUID]*account.Account
	updated  map[uuid.UUID]update
	appended []*account.Transaction
}

func newWork() *work {
	return &work{
		created: make(map[uuid.UUID]*account.Account),
		updated: make(map[uuid.UUID]update),
	}
}

func (w *work) empty() bool {
	return len(w.created) == 0 && len(w.updated) == 0 && len(w.appended) == 0
}

func (s *Store) commit(w *work) error {
	if w.empty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range w.created {
		if _, ok := s.accounts[id]; ok {
			return domain.ErrAlreadyExists
		}
	}
	for id, u := range w.updated {
		if _, ok := w.created[id]; ok {
			continue
		}
		cur, ok := s.accounts[id]
		if !ok {
			return domain.ErrAccountNotFound
		}
		if cur.Version != u.version {
			return domain.ErrPersistenceConflict
		}
	}
	seen := make(map[opKey]struct{})
	for _, tx := range w.appended {
		if tx.OperationID == "" {
			continue
		}
		k := opKey{tx.AccountID, tx.OperationID}
		if _, ok := s.byOperation[k]; ok {
			return domain.ErrAlreadyExists
		}
		if _, ok := seen[k]; ok {
			return domain.ErrAlreadyExists
		}
		seen[k] = struct{}{}
	}

	for id, a := range w.created {
		s.accounts[id] = a.Clone()
	}
	for id, u := range w.updated {
		s.accounts[id] = u.acct.Clone()
	}
	for _, tx := range w.appended {
		s.appendLocked(tx)
	}
	return nil
}

func (s *Store) appendLocked(tx *account.Transaction) {
	c := *tx
	s.transactions[c.ID] = &c
	s.byAccount[c.AccountID] = append(s.byAccount[c.AccountID], c.ID)
	if c.OperationID != "" {
		s.byOperation[opKey{c.AccountID, c.OperationID}] = c.ID
	}
}

type accountRepository struct {
	store *Store
	work  *work
}

func (r *accountRepository) Get(_ context.Context, id uuid.UUID) (*account.Account, error) {
	if r.work != nil {
		if u, ok := r.work.updated[id]; ok {
			return u.acct.Clone(), nil
		}
		if a, ok := r.work.created[id]; ok {
			return a.Clone(), nil
		}
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

func (r *accountRepository) Create(_ context.Context, a *account.Account) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	if r.work != nil {
		r.work.created[a.ID] = a.Clone()
		return nil
	}
	w := newWork()
	w.created[a.ID] = a.Clone()
	return r.store.commit(w)
}

func (r *accountRepository) CompareAndSet(ctx context.Context, a *account.Account, expectedVersion int64) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	next := a.Clone()
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now().UTC()

	w := r.work
	if w == nil {
		w = newWork()
	}
	// Staged state is checked eagerly so a stale caller fails before doing more work.
	if prev, ok := w.updated[a.ID]; ok {
		if prev.acct.Version != expectedVersion {
			return domain.ErrPersistenceConflict
		}
		w.updated[a.ID] = update{acct: next, version: prev.version}
	} else if created, ok := w.created[a.ID]; ok {
		if created.Version != expectedVersion {
			return domain.ErrPersistenceConflict
		}
		w.created[a.ID] = next
	} else {
		cur, err := r.Get(ctx, a.ID)
		if err != nil {
			return err
		}
		if cur.Version != expectedVersion {
			return domain.ErrPersistenceConflict
		}
		w.updated[a.ID] = update{acct: next, version: expectedVersion}
	}

	if r.work == nil {
		if err := r.store.commit(w); err != nil {
			return err
		}
	}
	a.Version = next.Version
	a.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *accountRepository) List(_ context.Context, limit, offset int) ([]*account.Account, error) {
	r.store.mu.RLock()
	out := make([]*account.Account, 0, len(r.store.accounts))
	for _, a := range r.store.accounts {
		out = append(out, a.Clone())
	}
	r.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

type transactionRepository struct {
	store *Store
	work  *work
}

func (r *transactionRepository) Append(_ context.Context, tx *account.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	c := *tx
	if r.work != nil {
		r.work.appended = append(r.work.appended, &c)
		return nil
	}
	w := newWork()
	w.appended = append(w.appended, &c)
	return r.store.commit(w)
}

func (r *transactionRepository) Get(_ context.Context, id uuid.UUID) (*account.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	tx, ok := r.store.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *tx
	return &c, nil
}

func (r *transactionRepository) GetByOperationID(
	_ context.Context,
	accountID uuid.UUID,
	operationID string,
) (*account.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	id, ok := r.store.byOperation[opKey{accountID, operationID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *r.store.transactions[id]
	return &c, nil
}

func (r *transactionRepository) ListByAccount(
	_ context.Context,
	accountID uuid.UUID,
	filter repository.TransactionFilter,
) ([]*account.Transaction, error) {
	r.store.mu.RLock()
	ids := r.store.byAccount[accountID]
	out := make([]*account.Transaction, 0, len(ids))
	// Append order is commit order; walk backwards for newest first.
	for i := len(ids) - 1; i >= 0; i-- {
		tx := r.store.transactions[ids[i]]
		if filter.Kind != "" && tx.Kind != filter.Kind {
			continue
		}
		c := *tx
		out = append(out, &c)
	}
	r.store.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, filter.Limit, filter.Offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
