package account

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Portfolio is a read-only valuation of an account at a given BTC price.
type Portfolio struct {
	AccountID      uuid.UUID
	CashBalance    decimal.Decimal
	BTCBalance     decimal.Decimal
	TotalInvested  decimal.Decimal
	BTCPrice       decimal.Decimal
	PortfolioValue decimal.Decimal
	TotalValue     decimal.Decimal
	ProfitLoss     decimal.Decimal
	ProfitLossPct  decimal.Decimal
}

// Valuate computes the account's portfolio at price. The percentage is zero
// when nothing has been invested.
func (a *Account) Valuate(price decimal.Decimal) Portfolio {
	pv := a.BTCBalance.Mul(price)
	total := a.CashBalance.Add(pv)
	pl := total.Sub(a.TotalInvested)
	pct := decimal.Zero
	if a.TotalInvested.IsPositive() {
		pct = pl.Div(a.TotalInvested).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return Portfolio{
		AccountID:      a.ID,
		CashBalance:    a.CashBalance,
		BTCBalance:     a.BTCBalance,
		TotalInvested:  a.TotalInvested,
		BTCPrice:       price,
		PortfolioValue: pv,
		TotalValue:     total,
		ProfitLoss:     pl,
		ProfitLossPct:  pct,
	}
}
