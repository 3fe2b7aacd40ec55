package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/amirasaad/btcvest/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository returns a GORM backed AccountRepository.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var m Account
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, MapGormErrorToDomain(err)
	}
	return toDomainAccount(&m)
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	m := fromDomainAccount(a)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(m).Error
	})
}

func (r *accountRepository) CompareAndSet(ctx context.Context, a *account.Account, expectedVersion int64) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&Account{}).
		Where("id = ? AND version = ?", a.ID, expectedVersion).
		Updates(map[string]any{
			"username":       a.Username,
			"is_admin":       a.IsAdmin,
			"active":         a.Active,
			"cash_balance":   a.CashBalance,
			"btc_balance":    a.BTCBalance,
			"total_invested": a.TotalInvested,
			"version":        expectedVersion + 1,
			"updated_at":     now,
		})
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&Account{}).Where("id = ?", a.ID).Count(&count).Error; err != nil {
			return MapGormErrorToDomain(err)
		}
		if count == 0 {
			return domain.ErrAccountNotFound
		}
		return domain.ErrPersistenceConflict
	}
	a.Version = expectedVersion + 1
	a.UpdatedAt = now
	return nil
}

func (r *accountRepository) List(ctx context.Context, limit, offset int) ([]*account.Account, error) {
	var rows []Account
	q := r.db.WithContext(ctx).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*account.Account, 0, len(rows))
	for i := range rows {
		a, err := toDomainAccount(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func toDomainAccount(m *Account) (*account.Account, error) {
	a, err := account.New().
		WithID(m.ID).
		WithUserID(m.UserID).
		WithUsername(m.Username).
		WithAdmin(m.IsAdmin).
		WithActive(m.Active).
		WithBalances(m.CashBalance, m.BTCBalance, m.TotalInvested).
		WithVersion(m.Version).
		WithCreatedAt(m.CreatedAt).
		WithUpdatedAt(m.UpdatedAt).
		Build()
	if err != nil {
		return nil, fmt.Errorf("%w: hydrate account %s: %w", domain.ErrPersistenceFailure, m.ID, err)
	}
	return a, nil
}

func fromDomainAccount(a *account.Account) *Account {
	return &Account{
		ID:            a.ID,
		UserID:        a.UserID,
		Username:      a.Username,
		IsAdmin:       a.IsAdmin,
		Active:        a.Active,
		CashBalance:   a.CashBalance,
		BTCBalance:    a.BTCBalance,
		TotalInvested: a.TotalInvested,
		Version:       a.Version,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}
