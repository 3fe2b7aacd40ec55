package account_test

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/amirasaad/btcvest/pkg/domain"
	domainaccount "github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain runs before any tests and applies globally for all tests in the package.
func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	log.SetOutput(io.Discard)

	exitVal := m.Run()
	os.Exit(exitVal)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newAccount(t *testing.T, cash, btc, invested string) *domainaccount.Account {
	t.Helper()
	acc, err := domainaccount.New().
		WithUsername("alice").
		WithBalances(dec(cash), dec(btc), dec(invested)).
		Build()
	require.NoError(t, err)
	return acc
}

func TestNewAccount(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	acc, err := domainaccount.New().WithUsername("alice").Build()
	require.NoError(err)
	assert.NotEqual(t, uuid.Nil, acc.ID)
	assert.Equal(t, acc.ID, acc.UserID, "user id defaults to account id")
	assert.True(t, acc.Active)
	assert.True(t, acc.CashBalance.IsZero())
	assert.True(t, acc.BTCBalance.IsZero())
	assert.Zero(t, acc.Version)
}

func TestBuild_Validation(t *testing.T) {
	t.Parallel()

	t.Run("missing username", func(t *testing.T) {
		_, err := domainaccount.New().Build()
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("negative balance", func(t *testing.T) {
		_, err := domainaccount.New().
			WithUsername("bob").
			WithBalances(dec("-1"), decimal.Zero, decimal.Zero).
			Build()
		assert.ErrorIs(t, err, domain.ErrNegativeBalance)
	})
}

func TestDeposit(t *testing.T) {
	t.Parallel()
	acc := newAccount(t, "10", "0", "0")

	eff, err := acc.Deposit(dec("25.50"))
	require.NoError(t, err)
	assert.Equal(t, domainaccount.KindDeposit, eff.Kind)
	assert.True(t, eff.CashDelta.Equal(dec("25.50")))
	assert.True(t, acc.CashBalance.Equal(dec("35.50")))

	for _, bad := range []string{"0", "-5"} {
		_, err := acc.Deposit(dec(bad))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, bad)
	}
	assert.True(t, acc.CashBalance.Equal(dec("35.50")))
}

func TestInvest(t *testing.T) {
	t.Parallel()

	t.Run("full balance at 50000", func(t *testing.T) {
		acc := newAccount(t, "100", "0", "0")
		eff, err := acc.Invest(dec("100"), dec("50000"))
		require.NoError(t, err)

		assert.Equal(t, domainaccount.KindInvestment, eff.Kind)
		assert.True(t, eff.CashDelta.Equal(dec("-100")))
		assert.True(t, eff.BTCDelta.Equal(dec("0.002")))
		assert.True(t, eff.BTCPrice.Equal(dec("50000")))
		assert.True(t, acc.CashBalance.IsZero())
		assert.True(t, acc.BTCBalance.Equal(dec("0.002")))
		assert.True(t, acc.TotalInvested.Equal(dec("100")))
	})

	t.Run("insufficient funds leaves account untouched", func(t *testing.T) {
		acc := newAccount(t, "50", "1", "10")
		before := acc.Clone()
		_, err := acc.Invest(dec("50.01"), dec("50000"))
		assert.ErrorIs(t, err, domainaccount.ErrInsufficientFunds)
		assert.Equal(t, before, acc)
	})

	t.Run("btc rounded to satoshi", func(t *testing.T) {
		acc := newAccount(t, "10", "0", "0")
		eff, err := acc.Invest(dec("10"), dec("30000"))
		require.NoError(t, err)
		assert.Equal(t, "0.00033333", eff.BTCDelta.String())
	})

	t.Run("non-positive price rejected", func(t *testing.T) {
		acc := newAccount(t, "10", "0", "0")
		_, err := acc.Invest(dec("10"), decimal.Zero)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestAdjustCash(t *testing.T) {
	t.Parallel()

	t.Run("subtract clamps at zero and keeps requested delta", func(t *testing.T) {
		acc := newAccount(t, "300", "0", "0")
		eff, err := acc.AdjustCash(domainaccount.DirectionSubtract, dec("1000"))
		require.NoError(t, err)
		assert.True(t, acc.CashBalance.IsZero())
		assert.True(t, eff.CashDelta.Equal(dec("-1000")))
		assert.True(t, eff.BTCPrice.IsZero())
		assert.Equal(t, domainaccount.KindAdminAdjustment, eff.Kind)
	})

	t.Run("add", func(t *testing.T) {
		acc := newAccount(t, "1", "0", "0")
		_, err := acc.AdjustCash(domainaccount.DirectionAdd, dec("2"))
		require.NoError(t, err)
		assert.True(t, acc.CashBalance.Equal(dec("3")))
	})

	t.Run("invalid direction", func(t *testing.T) {
		acc := newAccount(t, "1", "0", "0")
		_, err := acc.AdjustCash(domainaccount.Direction("sideways"), dec("2"))
		assert.ErrorIs(t, err, domain.ErrInvalidDirection)
		assert.True(t, domainaccount.IsValidationError(err))
	})
}

func TestAdjustBTC(t *testing.T) {
	t.Parallel()
	acc := newAccount(t, "0", "0.5", "0")

	eff, err := acc.AdjustBTC(domainaccount.DirectionSubtract, dec("2"), dec("48000"))
	require.NoError(t, err)
	assert.True(t, acc.BTCBalance.IsZero())
	assert.True(t, eff.BTCDelta.Equal(dec("-2")))
	assert.True(t, eff.BTCPrice.Equal(dec("48000")))

	_, err = acc.AdjustBTC(domainaccount.DirectionAdd, dec("0.1"), dec("48000"))
	require.NoError(t, err)
	assert.True(t, acc.BTCBalance.Equal(dec("0.1")))
}

func TestWithdrawAndProfit(t *testing.T) {
	t.Parallel()
	acc := newAccount(t, "20", "0", "0")

	eff, err := acc.Withdraw(dec("50"))
	require.NoError(t, err)
	assert.True(t, acc.CashBalance.IsZero())
	assert.True(t, eff.CashDelta.Equal(dec("-50")))

	eff, err = acc.CreditProfit(dec("0.01"), dec("40000"))
	require.NoError(t, err)
	assert.Equal(t, domainaccount.KindProfit, eff.Kind)
	assert.True(t, acc.BTCBalance.Equal(dec("0.01")))

	_, err = acc.CreditProfit(decimal.Zero, dec("40000"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestRecordInvestment(t *testing.T) {
	t.Parallel()
	acc := newAccount(t, "100", "0", "0")

	_, err := acc.RecordInvestment(dec("150"), dec("0.003"), dec("50000"))
	assert.ErrorIs(t, err, domainaccount.ErrInsufficientFunds)

	eff, err := acc.RecordInvestment(dec("100"), dec("0.0025"), dec("40000"))
	require.NoError(t, err)
	assert.True(t, eff.BTCDelta.Equal(dec("0.0025")))
	assert.True(t, acc.TotalInvested.Equal(dec("100")))
}

func TestSetActive(t *testing.T) {
	t.Parallel()

	t.Run("admin cannot be deactivated", func(t *testing.T) {
		acc, err := domainaccount.New().WithUsername("root").WithAdmin(true).Build()
		require.NoError(t, err)
		err = acc.SetActive(false)
		assert.ErrorIs(t, err, domainaccount.ErrForbiddenOperation)
		assert.True(t, acc.Active)
		assert.NoError(t, acc.SetActive(true))
	})

	t.Run("regular user toggles", func(t *testing.T) {
		acc := newAccount(t, "0", "0", "0")
		require.NoError(t, acc.SetActive(false))
		assert.False(t, acc.Active)
		require.NoError(t, acc.SetActive(true))
		assert.True(t, acc.Active)
	})
}

func TestNewTransaction(t *testing.T) {
	t.Parallel()
	acc := newAccount(t, "100", "0", "0")
	eff, err := acc.Invest(dec("40"), dec("40000"))
	require.NoError(t, err)

	tx, err := domainaccount.NewTransaction(acc, eff,
		domainaccount.WithOperationID("op-1"),
		domainaccount.WithDescription("Invested $40.00 in Bitcoin"),
	)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, tx.AccountID)
	assert.Equal(t, domainaccount.StatusCompleted, tx.Status)
	assert.Equal(t, "op-1", tx.OperationID)
	assert.True(t, tx.CashBalanceAfter.Equal(dec("60")))
	assert.True(t, tx.BTCBalanceAfter.Equal(dec("0.001")))

	_, err = domainaccount.NewTransaction(acc, eff,
		domainaccount.WithDescription(strings.Repeat("x", domainaccount.MaxDescriptionLength+1)))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = domainaccount.NewTransaction(acc, eff,
		domainaccount.WithAdminNote(strings.Repeat("x", domainaccount.MaxAdminNoteLength+1)))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestKindAndDirection(t *testing.T) {
	t.Parallel()
	assert.True(t, domainaccount.KindProfit.Manual())
	assert.False(t, domainaccount.KindAdminAdjustment.Manual())
	assert.False(t, domainaccount.Kind("bonus").Valid())
	assert.True(t, domainaccount.StatusCancelled.Valid())
	assert.False(t, domainaccount.Direction("").Valid())
}

func TestValuate(t *testing.T) {
	t.Parallel()

	acc := newAccount(t, "50", "0.002", "100")
	p := acc.Valuate(dec("60000"))
	assert.True(t, p.PortfolioValue.Equal(dec("120")))
	assert.True(t, p.TotalValue.Equal(dec("170")))
	assert.True(t, p.ProfitLoss.Equal(dec("70")))
	assert.True(t, p.ProfitLossPct.Equal(dec("70")))

	empty := newAccount(t, "10", "0", "0")
	assert.True(t, empty.Valuate(dec("60000")).ProfitLossPct.IsZero())
}
