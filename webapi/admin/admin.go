// Package admin exposes the operator endpoints: balance adjustments, status
// changes and manual ledger entries.
package admin

import (
	"context"
	"errors"

	"github.com/amirasaad/btcvest/pkg/config"
	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/amirasaad/btcvest/pkg/middleware"
	"github.com/amirasaad/btcvest/pkg/service/ledger"
	accountweb "github.com/amirasaad/btcvest/webapi/account"
	"github.com/amirasaad/btcvest/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Routes registers the admin endpoints behind JWT and the admin claim.
//
// Routes:
//   - GET  /admin/accounts                  : List accounts.
//   - POST /admin/accounts                  : Open an account.
//   - PUT  /admin/accounts/:id/balance      : Adjust cash.
//   - PUT  /admin/accounts/:id/btc-balance  : Adjust BTC.
//   - PUT  /admin/accounts/:id/status       : Activate or deactivate.
//   - POST /admin/transactions              : Record a manual transaction.
func Routes(app *fiber.App, svc *ledger.Service, cfg *config.App) {
	g := app.Group("/admin", middleware.JwtProtected(cfg.Auth.Jwt), middleware.AdminOnly())
	g.Get("/accounts", ListAccounts(svc))
	g.Post("/accounts", OpenAccount(svc))
	g.Put("/accounts/:id/balance", AdjustBalance(svc))
	g.Put("/accounts/:id/btc-balance", AdjustBTCBalance(svc))
	g.Put("/accounts/:id/status", SetStatus(svc))
	g.Post("/transactions", CreateTransaction(svc))
}

func accountID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, errors.Join(domain.ErrValidation, errors.New("invalid account ID"))
	}
	return id, nil
}

// ListAccounts pages through every account.
// @Summary List accounts
// @Tags admin
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} common.Response
// @Router /admin/accounts [get]
// @Security Bearer
func ListAccounts(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accounts, err := svc.Accounts(c.UserContext(), c.QueryInt("limit", ledger.DefaultHistoryLimit), c.QueryInt("offset", 0))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list accounts", err)
		}
		out := make([]accountweb.AccountResponse, 0, len(accounts))
		for _, a := range accounts {
			out = append(out, accountweb.ToAccountResponse(a))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Accounts fetched", out)
	}
}

// OpenAccount creates a zero-balance account.
// @Summary Open account
// @Tags admin
// @Accept json
// @Produce json
// @Param request body OpenAccountRequest true "Account details"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Router /admin/accounts [post]
// @Security Bearer
func OpenAccount(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[OpenAccountRequest](c)
		if input == nil {
			return err
		}
		req := ledger.OpenAccountRequest{Username: input.Username, IsAdmin: input.IsAdmin}
		if input.ID != "" {
			req.ID = uuid.MustParse(input.ID)
		}
		a, err := svc.OpenAccount(c.UserContext(), req)
		if err != nil {
			log.Errorf("Failed to open account %q: %v", input.Username, err)
			return common.ProblemDetailsJSON(c, "Failed to open account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Account opened", accountweb.ToAccountResponse(a))
	}
}

// AdjustBalance adds to or subtracts from cash. Subtraction clamps at zero.
// @Summary Adjust cash balance
// @Tags admin
// @Param id path string true "Account ID"
// @Param request body AdjustRequest true "Adjustment"
// @Success 200 {object} common.Response
// @Router /admin/accounts/{id}/balance [put]
// @Security Bearer
func AdjustBalance(svc *ledger.Service) fiber.Handler {
	return adjust(svc.AdjustCash, "Balance adjusted")
}

// AdjustBTCBalance adds to or subtracts from BTC at the current price.
// @Summary Adjust BTC balance
// @Tags admin
// @Param id path string true "Account ID"
// @Param request body AdjustRequest true "Adjustment"
// @Success 200 {object} common.Response
// @Router /admin/accounts/{id}/btc-balance [put]
// @Security Bearer
func AdjustBTCBalance(svc *ledger.Service) fiber.Handler {
	return adjust(svc.AdjustBTC, "BTC balance adjusted")
}

type adjustFunc func(ctx context.Context, id uuid.UUID, dir account.Direction, amount decimal.Decimal, meta ledger.Meta) (*ledger.Result, error)

func adjust(fn adjustFunc, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := accountID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Adjustment rejected", err)
		}
		p, err := middleware.CurrentPrincipal(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err, fiber.StatusUnauthorized)
		}
		input, err := common.BindAndValidate[AdjustRequest](c)
		if input == nil {
			return err
		}
		res, err := fn(c.UserContext(), id, account.Direction(input.Direction), input.Amount, ledger.Meta{
			OperationID: c.Get(accountweb.IdempotencyHeader),
			AdminNote:   input.AdminNote,
			Actor:       p.Username,
		})
		if err != nil {
			log.Errorf("Adjustment failed for account %s: %v", id, err)
			return common.ProblemDetailsJSON(c, "Adjustment failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, message, accountweb.ToResultResponse(res))
	}
}

// SetStatus activates or deactivates an account. Admins cannot be deactivated.
// @Summary Set account status
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body StatusRequest true "Status"
// @Success 200 {object} common.Response
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /admin/accounts/{id}/status [put]
// @Security Bearer
func SetStatus(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := accountID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Status change rejected", err)
		}
		p, err := middleware.CurrentPrincipal(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err, fiber.StatusUnauthorized)
		}
		input, err := common.BindAndValidate[StatusRequest](c)
		if input == nil {
			return err
		}
		a, err := svc.SetActive(c.UserContext(), id, *input.Active, p.Username)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Status change failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account status updated", accountweb.ToAccountResponse(a))
	}
}

// CreateTransaction records a manual deposit, withdrawal, investment or profit.
func CreateTransaction(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := middleware.CurrentPrincipal(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err, fiber.StatusUnauthorized)
		}
		input, err := common.BindAndValidate[ManualTransactionRequest](c)
		if input == nil {
			return err
		}
		res, err := svc.RecordManual(c.UserContext(), ledger.ManualEntry{
			AccountID: uuid.MustParse(input.AccountID),
			Kind:      account.Kind(input.Kind),
			Amount:    input.Amount,
			BTCAmount: input.BTCAmount,
			Meta: ledger.Meta{
				OperationID: c.Get(accountweb.IdempotencyHeader),
				Description: input.Description,
				AdminNote:   input.AdminNote,
				Actor:       p.Username,
			},
		})
		if err != nil {
			log.Errorf("Manual transaction failed: %v", err)
			return common.ProblemDetailsJSON(c, "Transaction failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Transaction recorded", accountweb.ToResultResponse(res))
	}
}
