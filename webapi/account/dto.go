package account

import (
	"time"

	"github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/amirasaad/btcvest/pkg/service/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountRequest is the body of deposit and invest calls.
type AmountRequest struct {
	Amount      decimal.Decimal `json:"amount" xml:"amount" form:"amount"`
	Description string          `json:"description" xml:"description" form:"description" validate:"max=200"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID            uuid.UUID       `json:"id"`
	Username      string          `json:"username"`
	IsAdmin       bool            `json:"is_admin"`
	Active        bool            `json:"active"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
	BTCBalance    decimal.Decimal `json:"btc_balance"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TransactionResponse is the public view of a ledger record.
type TransactionResponse struct {
	ID               uuid.UUID       `json:"id"`
	AccountID        uuid.UUID       `json:"account_id"`
	OperationID      string          `json:"operation_id,omitempty"`
	Kind             string          `json:"kind"`
	Status           string          `json:"status"`
	CashDelta        decimal.Decimal `json:"cash_delta"`
	BTCDelta         decimal.Decimal `json:"btc_delta"`
	BTCPrice         decimal.Decimal `json:"btc_price"`
	CashBalanceAfter decimal.Decimal `json:"cash_balance_after"`
	BTCBalanceAfter  decimal.Decimal `json:"btc_balance_after"`
	Description      string          `json:"description"`
	AdminNote        string          `json:"admin_note,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ResultResponse is returned by every balance-changing call.
type ResultResponse struct {
	Account     AccountResponse     `json:"account"`
	Transaction TransactionResponse `json:"transaction"`
	Replayed    bool                `json:"replayed"`
}

// PortfolioResponse values an account at the current price.
type PortfolioResponse struct {
	AccountID      uuid.UUID       `json:"account_id"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	BTCBalance     decimal.Decimal `json:"btc_balance"`
	TotalInvested  decimal.Decimal `json:"total_invested"`
	BTCPrice       decimal.Decimal `json:"btc_price"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	TotalValue     decimal.Decimal `json:"total_value"`
	ProfitLoss     decimal.Decimal `json:"profit_loss"`
	ProfitLossPct  decimal.Decimal `json:"profit_loss_percentage"`
}

func ToAccountResponse(a *account.Account) AccountResponse {
	return AccountResponse{
		ID:            a.ID,
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

func ToTransactionResponse(tx *account.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:               tx.ID,
		AccountID:        tx.AccountID,
		OperationID:      tx.OperationID,
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
}

func ToTransactionResponses(txs []*account.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, ToTransactionResponse(tx))
	}
	return out
}

func ToResultResponse(res *ledger.Result) ResultResponse {
	return ResultResponse{
		Account:     ToAccountResponse(res.Account),
		Transaction: ToTransactionResponse(res.Transaction),
		Replayed:    res.Replayed,
	}
}

func ToPortfolioResponse(p account.Portfolio) PortfolioResponse {
	return PortfolioResponse{
		AccountID:      p.AccountID,
		CashBalance:    p.CashBalance,
		BTCBalance:     p.BTCBalance,
		TotalInvested:  p.TotalInvested,
		BTCPrice:       p.BTCPrice,
		PortfolioValue: p.PortfolioValue,
		TotalValue:     p.TotalValue,
		ProfitLoss:     p.ProfitLoss,
		ProfitLossPct:  p.ProfitLossPct,
	}
}
