package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/amirasaad/btcvest/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var transactionColumns = []string{
	"id", "account_id", "operation_id", "kind", "status",
	"cash_delta", "btc_delta", "btc_price", "cash_balance_after", "btc_balance_after",
	"description", "admin_note", "created_at",
}

func sampleTransaction(t *testing.T) *account.Transaction {
	t.Helper()
	a, err := account.New().WithUsername("alice").
		WithBalances(decimal.NewFromInt(100), decimal.Zero, decimal.Zero).Build()
	require.NoError(t, err)
	eff, err := a.Invest(decimal.NewFromInt(100), decimal.NewFromInt(50000))
	require.NoError(t, err)
	tx, err := account.NewTransaction(a, eff, account.WithOperationID("op-1"))
	require.NoError(t, err)
	return tx
}

func TestTransactionRepository_Append(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)
	tx := sampleTransaction(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "transactions"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(u repository.UnitOfWork) error {
		repo, _ := u.TransactionRepository()
		return repo.Append(context.Background(), tx)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_AppendDuplicateOperation(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)
	tx := sampleTransaction(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "transactions"`).WillReturnError(gorm.ErrDuplicatedKey)
	mock.ExpectRollback()

	err := uow.Do(context.Background(), func(u repository.UnitOfWork) error {
		repo, _ := u.TransactionRepository()
		return repo.Append(context.Background(), tx)
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestTransactionRepository_GetByOperationID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	accountID := uuid.New()
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE account_id = \$1 AND operation_id = \$2`).
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow(id.String(), accountID.String(), "op-9", "deposit", "completed",
				"25", "0", "0", "125", "0", "Deposit", "", time.Now().UTC()))

	tx, err := repo.GetByOperationID(context.Background(), accountID, "op-9")
	require.NoError(t, err)
	assert.Equal(t, id, tx.ID)
	assert.Equal(t, account.KindDeposit, tx.Kind)
	assert.Equal(t, "op-9", tx.OperationID)
	assert.True(t, tx.CashBalanceAfter.Equal(decimal.NewFromInt(125)))

	mock.ExpectQuery(`SELECT \* FROM "transactions"`).
		WillReturnRows(sqlmock.NewRows(transactionColumns))
	_, err = repo.GetByOperationID(context.Background(), accountID, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransactionRepository_ListByAccount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	accountID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE account_id = \$1 AND kind = \$2 ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow(uuid.NewString(), accountID.String(), nil, "investment", "completed",
				"-50", "0.001", "50000", "0", "0.001", "Invested $50.00 in Bitcoin", "", now).
			AddRow(uuid.NewString(), accountID.String(), nil, "investment", "completed",
				"-50", "0.001", "50000", "50", "0.002", "Invested $50.00 in Bitcoin", "", now.Add(-time.Minute)))

	txs, err := repo.ListByAccount(context.Background(), accountID, repository.TransactionFilter{
		Kind:  account.KindInvestment,
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Empty(t, txs[0].OperationID)
	assert.True(t, txs[0].CreatedAt.After(txs[1].CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
