package account

import (
	"errors"

	"github.com/amirasaad/btcvest/pkg/config"
	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/amirasaad/btcvest/pkg/middleware"
	"github.com/amirasaad/btcvest/pkg/repository"
	"github.com/amirasaad/btcvest/pkg/service/ledger"
	"github.com/amirasaad/btcvest/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// IdempotencyHeader carries the caller's operation ID.
const IdempotencyHeader = "Idempotency-Key"

// Routes registers the account endpoints. Callers may only act on their own
// account unless they hold the admin claim.
//
// Routes:
//   - POST /accounts/:id/deposit       : Deposit cash.
//   - POST /accounts/:id/invest        : Buy BTC with cash at the current price.
//   - GET  /accounts/:id               : Account balances.
//   - GET  /accounts/:id/portfolio     : Valuation at the current price.
//   - GET  /accounts/:id/transactions  : Ledger records, newest first.
func Routes(app *fiber.App, svc *ledger.Service, cfg *config.App) {
	g := app.Group("/accounts/:id", middleware.JwtProtected(cfg.Auth.Jwt))
	g.Post("/deposit", Deposit(svc))
	g.Post("/invest", Invest(svc))
	g.Get("/", GetAccount(svc))
	g.Get("/portfolio", GetPortfolio(svc))
	g.Get("/transactions", GetTransactions(svc))
}

// ownAccount resolves :id and checks the caller may act on it.
func ownAccount(c *fiber.Ctx) (uuid.UUID, middleware.Principal, error) {
	p, err := middleware.CurrentPrincipal(c)
	if err != nil {
		return uuid.Nil, p, errors.Join(domain.ErrUnauthorized, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, p, errors.Join(domain.ErrValidation, errors.New("invalid account ID"))
	}
	if id != p.AccountID && !p.Admin {
		return uuid.Nil, p, fiber.NewError(fiber.StatusForbidden, "cannot access another user's account")
	}
	return id, p, nil
}

// Deposit credits cash to the account.
// @Summary Deposit funds
// @Tags accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param Idempotency-Key header string false "Operation ID"
// @Param request body AmountRequest true "Deposit details"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /accounts/{id}/deposit [post]
// @Security Bearer
func Deposit(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, p, err := ownAccount(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Deposit rejected", err)
		}
		input, err := common.BindAndValidate[AmountRequest](c)
		if input == nil {
			return err
		}
		res, err := svc.Deposit(c.UserContext(), id, input.Amount, ledger.Meta{
			OperationID: c.Get(IdempotencyHeader),
			Description: input.Description,
			Actor:       p.Username,
		})
		if err != nil {
			log.Errorf("Deposit failed for account %s: %v", id, err)
			return common.ProblemDetailsJSON(c, "Deposit failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Deposit successful", ToResultResponse(res))
	}
}

// Invest buys BTC with cash.
// @Summary Invest cash in BTC
// @Tags accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param Idempotency-Key header string false "Operation ID"
// @Param request body AmountRequest true "Investment details"
// @Success 200 {object} common.Response
// @Failure 422 {object} common.ProblemDetails "Insufficient funds"
// @Failure 503 {object} common.ProblemDetails "Price unavailable"
// @Router /accounts/{id}/invest [post]
// @Security Bearer
func Invest(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, p, err := ownAccount(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Investment rejected", err)
		}
		input, err := common.BindAndValidate[AmountRequest](c)
		if input == nil {
			return err
		}
		res, err := svc.Invest(c.UserContext(), id, input.Amount, ledger.Meta{
			OperationID: c.Get(IdempotencyHeader),
			Description: input.Description,
			Actor:       p.Username,
		})
		if err != nil {
			log.Errorf("Investment failed for account %s: %v", id, err)
			return common.ProblemDetailsJSON(c, "Investment failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Investment successful", ToResultResponse(res))
	}
}

// GetAccount returns the account's balances.
// @Summary Get account
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} common.Response
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /accounts/{id} [get]
// @Security Bearer
func GetAccount(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _, err := ownAccount(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Account lookup rejected", err)
		}
		a, err := svc.Account(c.UserContext(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to get account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account fetched", ToAccountResponse(a))
	}
}

// GetPortfolio values the account at the current BTC price.
// @Summary Get portfolio
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} common.Response
// @Failure 404 {object} common.ProblemDetails
// @Failure 503 {object} common.ProblemDetails "Price unavailable"
// @Router /accounts/{id}/portfolio [get]
// @Security Bearer
func GetPortfolio(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _, err := ownAccount(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Portfolio lookup rejected", err)
		}
		p, err := svc.Portfolio(c.UserContext(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to value portfolio", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Portfolio fetched", ToPortfolioResponse(p))
	}
}

// GetTransactions lists ledger records. Query: kind, limit, offset.
func GetTransactions(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _, err := ownAccount(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Transaction lookup rejected", err)
		}
		txs, err := svc.History(c.UserContext(), id, repository.TransactionFilter{
			Kind:   account.Kind(c.Query("kind")),
			Limit:  c.QueryInt("limit", ledger.DefaultHistoryLimit),
			Offset: c.QueryInt("offset", 0),
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list transactions", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions fetched", ToTransactionResponses(txs))
	}
}
