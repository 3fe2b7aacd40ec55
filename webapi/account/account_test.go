package account_test

import (
	"fmt"
	"testing"

	"github.com/amirasaad/btcvest/pkg/domain/account"
	accountweb "github.com/amirasaad/btcvest/webapi/account"
	"github.com/amirasaad/btcvest/webapi/common"
	"github.com/amirasaad/btcvest/webapi/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type resultEnvelope struct {
	Status int                       `json:"status"`
	Data   accountweb.ResultResponse `json:"data"`
}

type AccountTestSuite struct {
	testutils.WebTestSuite
	acct  *account.Account
	token string
}

func TestAccountTestSuite(t *testing.T) {
	suite.Run(t, new(AccountTestSuite))
}

func (s *AccountTestSuite) SetupTest() {
	s.WebTestSuite.SetupTest()
	s.acct, s.token = s.OpenAccount("alice", false, "100")
}

func (s *AccountTestSuite) path(suffix string) string {
	return fmt.Sprintf("/accounts/%s%s", s.acct.ID, suffix)
}

func (s *AccountTestSuite) TestDeposit() {
	resp := s.MakeRequest("POST", s.path("/deposit"), `{"amount":"25.50"}`, s.token)
	s.Equal(fiber.StatusOK, resp.StatusCode)

	var body resultEnvelope
	s.Decode(resp, &body)
	s.True(body.Data.Account.CashBalance.Equal(decimal.RequireFromString("125.50")))
	s.Equal("deposit", body.Data.Transaction.Kind)
	s.Equal("completed", body.Data.Transaction.Status)
}

func (s *AccountTestSuite) TestInvest() {
	resp := s.MakeRequest("POST", s.path("/invest"), `{"amount":100}`, s.token)
	s.Equal(fiber.StatusOK, resp.StatusCode)

	var body resultEnvelope
	s.Decode(resp, &body)
	s.True(body.Data.Account.CashBalance.IsZero())
	s.True(body.Data.Account.BTCBalance.Equal(decimal.RequireFromString("0.002")))
	s.True(body.Data.Transaction.BTCPrice.Equal(testutils.TestPrice))
	s.Equal("Invested $100.00 in Bitcoin", body.Data.Transaction.Description)
}

func (s *AccountTestSuite) TestInvest_InsufficientFunds() {
	resp := s.MakeRequest("POST", s.path("/invest"), `{"amount":"500"}`, s.token)
	s.Equal(fiber.StatusUnprocessableEntity, resp.StatusCode)
	s.Equal("application/problem+json", resp.Header.Get("Content-Type"))

	var pd common.ProblemDetails
	s.Decode(resp, &pd)
	s.Equal("Investment failed", pd.Title)
}

func (s *AccountTestSuite) TestDeposit_InvalidAmount() {
	resp := s.MakeRequest("POST", s.path("/deposit"), `{"amount":"-5"}`, s.token)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)

	resp = s.MakeRequest("POST", s.path("/deposit"), `{"amount":`, s.token)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func (s *AccountTestSuite) TestIdempotencyKey() {
	first := s.MakeRequest("POST", s.path("/deposit"), `{"amount":"10"}`, s.token, "Idempotency-Key", "dep-42")
	s.Equal(fiber.StatusOK, first.StatusCode)
	second := s.MakeRequest("POST", s.path("/deposit"), `{"amount":"10"}`, s.token, "Idempotency-Key", "dep-42")
	s.Equal(fiber.StatusOK, second.StatusCode)

	var a, b resultEnvelope
	s.Decode(first, &a)
	s.Decode(second, &b)
	s.False(a.Data.Replayed)
	s.True(b.Data.Replayed)
	s.Equal(a.Data.Transaction.ID, b.Data.Transaction.ID)
	s.True(b.Data.Account.CashBalance.Equal(decimal.NewFromInt(110)))
}

func (s *AccountTestSuite) TestOtherUsersAccountIsForbidden() {
	_, otherToken := s.OpenAccount("mallory", false, "0")
	resp := s.MakeRequest("GET", s.path(""), "", otherToken)
	s.Equal(fiber.StatusForbidden, resp.StatusCode)
}

func (s *AccountTestSuite) TestAdminMayReadAnyAccount() {
	_, adminToken := s.OpenAccount("root", true, "0")
	resp := s.MakeRequest("GET", s.path(""), "", adminToken)
	s.Equal(fiber.StatusOK, resp.StatusCode)
}

func (s *AccountTestSuite) TestUnknownAccount() {
	id := uuid.New()
	resp := s.MakeRequest("GET", "/accounts/"+id.String(), "", s.Token(id, "ghost", false))
	s.Equal(fiber.StatusNotFound, resp.StatusCode)
}

func (s *AccountTestSuite) TestMissingToken() {
	resp := s.MakeRequest("GET", s.path(""), "", "")
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func (s *AccountTestSuite) TestPortfolio() {
	s.MakeRequest("POST", s.path("/invest"), `{"amount":"40"}`, s.token).Body.Close() //nolint:errcheck

	resp := s.MakeRequest("GET", s.path("/portfolio"), "", s.token)
	s.Equal(fiber.StatusOK, resp.StatusCode)
	var body struct {
		Data accountweb.PortfolioResponse `json:"data"`
	}
	s.Decode(resp, &body)
	s.True(body.Data.BTCBalance.Equal(decimal.RequireFromString("0.0008")))
	s.True(body.Data.PortfolioValue.Equal(decimal.NewFromInt(40)))
	s.True(body.Data.TotalValue.Equal(decimal.NewFromInt(100)))
}

func (s *AccountTestSuite) TestTransactions() {
	s.MakeRequest("POST", s.path("/invest"), `{"amount":"10"}`, s.token).Body.Close() //nolint:errcheck

	resp := s.MakeRequest("GET", s.path("/transactions?kind=investment"), "", s.token)
	s.Equal(fiber.StatusOK, resp.StatusCode)
	var body struct {
		Data []accountweb.TransactionResponse `json:"data"`
	}
	s.Decode(resp, &body)
	s.Require().Len(body.Data, 1)
	s.Equal("investment", body.Data[0].Kind)

	resp = s.MakeRequest("GET", s.path("/transactions?kind=bogus"), "", s.token)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
}
