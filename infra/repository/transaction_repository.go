package repository

import (
	"context"
	"fmt"

	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/amirasaad/btcvest/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository returns a GORM backed TransactionRepository.
func NewTransactionRepository(db *gorm.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Append(ctx context.Context, tx *account.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	m := fromDomainTransaction(tx)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(m).Error
	})
}

func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*account.Transaction, error) {
	var m Transaction
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return toDomainTransaction(&m), nil
}

func (r *transactionRepository) GetByOperationID(
	ctx context.Context,
	accountID uuid.UUID,
	operationID string,
) (*account.Transaction, error) {
	var m Transaction
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND operation_id = ?", accountID, operationID).
		First(&m).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return toDomainTransaction(&m), nil
}

func (r *transactionRepository) ListByAccount(
	ctx context.Context,
	accountID uuid.UUID,
	filter repository.TransactionFilter,
) ([]*account.Transaction, error) {
	q := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if filter.Kind != "" {
		q = q.Where("kind = ?", string(filter.Kind))
	}
	q = q.Order("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var rows []Transaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*account.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, toDomainTransaction(&rows[i]))
	}
	return out, nil
}

func toDomainTransaction(m *Transaction) *account.Transaction {
	var opID string
	if m.OperationID != nil {
		opID = *m.OperationID
	}
	return account.NewTransactionFromData(
		m.ID,
		m.AccountID,
		opID,
		account.Kind(m.Kind),
		account.Status(m.Status),
		m.CashDelta,
		m.BTCDelta,
		m.BTCPrice,
		m.CashBalanceAfter,
		m.BTCBalanceAfter,
		m.Description,
		m.AdminNote,
		m.CreatedAt,
	)
}

func fromDomainTransaction(tx *account.Transaction) *Transaction {
	m := &Transaction{
		ID:               tx.ID,
		AccountID:        tx.AccountID,
		Kind:             string(tx.Kind),
		Status:           string(tx.Status),
		CashDelta:        tx.CashDelta,
		BTCDelta:         tx.BTCDelta,
		BTCPrice:         tx.BTCPrice,
		CashBalanceAfter: tx.CashBalanceAfter,
		BTCBalanceAfter:  tx.BTCBalanceAfter,
		Description:      tx.Description,
		AdminNote:        tx.AdminNote,
		CreatedAt:        tx.CreatedAt,
	}
	// NULL keeps records without a key out of the unique index.
	if tx.OperationID != "" {
		opID := tx.OperationID
		m.OperationID = &opID
	}
	return m
}
