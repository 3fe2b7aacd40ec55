package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	infra_eventbus "github.com/amirasaad/btcvest/infra/eventbus"
	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/amirasaad/btcvest/pkg/repository"
	"github.com/amirasaad/btcvest/pkg/service/ledger"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	errUsage = errors.New("invalid arguments")

	heading = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	muted   = color.New(color.Faint)
)

// Run dispatches one command.
func (c *cli) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w\n%s", errUsage, usage)
	}
	switch args[0] {
	case "price":
		return c.price(ctx)
	case "accounts":
		return c.accounts(ctx, args[1:])
	case "open":
		return c.open(ctx, args[1:])
	case "deposit", "invest":
		return c.move(ctx, args[0], args[1:])
	case "adjust":
		return c.adjust(ctx, args[1:])
	case "status":
		return c.status(ctx, args[1:])
	case "history":
		return c.history(ctx, args[1:])
	case "portfolio":
		return c.portfolio(ctx, args[1:])
	case "events":
		if len(args) < 2 || args[1] != "tail" {
			return fmt.Errorf("%w: usage: events tail", errUsage)
		}
		return c.tail(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q\n%s", errUsage, args[0], usage)
	}
}

func (c *cli) price(ctx context.Context) error {
	q, err := c.app.Deps.Prices.Quote(ctx)
	if err != nil {
		return err
	}
	heading.Fprintf(c.out, "BTC/USD %s\n", q.Price.StringFixed(2))        //nolint:errcheck
	muted.Fprintf(c.out, "source=%s fetched_at=%s\n", q.Source, q.FetchedAt) //nolint:errcheck
	return nil
}

func (c *cli) accounts(ctx context.Context, args []string) error {
	limit, offset := ledger.DefaultHistoryLimit, 0
	var err error
	if len(args) > 0 {
		if limit, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("%w: limit: %v", errUsage, err)
		}
	}
	if len(args) > 1 {
		if offset, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("%w: offset: %v", errUsage, err)
		}
	}
	accounts, err := c.app.Ledger.Accounts(ctx, limit, offset)
	if err != nil {
		return err
	}
	heading.Fprintf(c.out, "%d account(s)\n", len(accounts)) //nolint:errcheck
	for _, a := range accounts {
		c.printAccount(a)
	}
	return nil
}

func (c *cli) open(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: usage: open <username> [admin]", errUsage)
	}
	a, err := c.app.Ledger.OpenAccount(ctx, ledger.OpenAccountRequest{
		Username: args[0],
		IsAdmin:  len(args) > 1 && args[1] == "admin",
	})
	if err != nil {
		return err
	}
	success.Fprintf(c.out, "Account opened: %s\n", a.ID) //nolint:errcheck
	c.printAccount(a)
	return nil
}

func (c *cli) move(ctx context.Context, cmd string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: %s <account_id> <amount>", errUsage, cmd)
	}
	id, amount, err := parseTarget(args[0], args[1])
	if err != nil {
		return err
	}
	meta := ledger.Meta{Actor: c.actor}
	var res *ledger.Result
	if cmd == "deposit" {
		res, err = c.app.Ledger.Deposit(ctx, id, amount, meta)
	} else {
		res, err = c.app.Ledger.Invest(ctx, id, amount, meta)
	}
	if err != nil {
		return err
	}
	c.printResult(res)
	return nil
}

func (c *cli) adjust(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("%w: usage: adjust <account_id> <cash|btc> <add|subtract> <amount>", errUsage)
	}
	id, amount, err := parseTarget(args[0], args[3])
	if err != nil {
		return err
	}
	dir := account.Direction(args[2])
	meta := ledger.Meta{Actor: c.actor}
	var res *ledger.Result
	switch args[1] {
	case "cash":
		res, err = c.app.Ledger.AdjustCash(ctx, id, dir, amount, meta)
	case "btc":
		res, err = c.app.Ledger.AdjustBTC(ctx, id, dir, amount, meta)
	default:
		return fmt.Errorf("%w: balance must be cash or btc", errUsage)
	}
	if err != nil {
		return err
	}
	c.printResult(res)
	return nil
}

func (c *cli) status(ctx context.Context, args []string) error {
	if len(args) < 2 || (args[1] != "active" && args[1] != "inactive") {
		return fmt.Errorf("%w: usage: status <account_id> <active|inactive>", errUsage)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("%w: account ID: %v", errUsage, err)
	}
	a, err := c.app.Ledger.SetActive(ctx, id, args[1] == "active", c.actor)
	if err != nil {
		return err
	}
	success.Fprintf(c.out, "Account %s is now %s\n", a.ID, args[1]) //nolint:errcheck
	return nil
}

func (c *cli) history(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: usage: history <account_id> [kind]", errUsage)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("%w: account ID: %v", errUsage, err)
	}
	filter := repository.TransactionFilter{Limit: ledger.DefaultHistoryLimit}
	if len(args) > 1 {
		filter.Kind = account.Kind(args[1])
	}
	txs, err := c.app.Ledger.History(ctx, id, filter)
	if err != nil {
		return err
	}
	heading.Fprintf(c.out, "%d transaction(s)\n", len(txs)) //nolint:errcheck
	for _, tx := range txs {
		fmt.Fprintf(c.out, "%s  %-16s cash %12s  btc %14s  %s\n", //nolint:errcheck
			tx.CreatedAt.Format("2006-01-02 15:04:05"), tx.Kind,
			tx.CashDelta.StringFixed(2), tx.BTCDelta.StringFixed(8), tx.Description)
	}
	return nil
}

func (c *cli) portfolio(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: usage: portfolio <account_id>", errUsage)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("%w: account ID: %v", errUsage, err)
	}
	p, err := c.app.Ledger.Portfolio(ctx, id)
	if err != nil {
		return err
	}
	heading.Fprintf(c.out, "Portfolio %s at $%s\n", p.AccountID, p.BTCPrice.StringFixed(2)) //nolint:errcheck
	fmt.Fprintf(c.out, "cash      %s\n", p.CashBalance.StringFixed(2))                       //nolint:errcheck
	fmt.Fprintf(c.out, "btc       %s (%s)\n", p.BTCBalance.String(), p.PortfolioValue.StringFixed(2)) //nolint:errcheck
	fmt.Fprintf(c.out, "invested  %s\n", p.TotalInvested.StringFixed(2))                     //nolint:errcheck
	fmt.Fprintf(c.out, "total     %s\n", p.TotalValue.StringFixed(2))                        //nolint:errcheck
	pl := success
	if p.ProfitLoss.IsNegative() {
		pl = color.New(color.FgRed)
	}
	pl.Fprintf(c.out, "p/l       %s (%s%%)\n", p.ProfitLoss.StringFixed(2), p.ProfitLossPct.StringFixed(2)) //nolint:errcheck
	return nil
}

// tail prints ledger events from Kafka until interrupted.
func (c *cli) tail(ctx context.Context) error {
	bus, ok := c.app.Deps.EventBus.(*infra_eventbus.KafkaEventBus)
	if !ok {
		return fmt.Errorf("%w: events tail requires EVENTBUS_DRIVER=kafka", domain.ErrValidation)
	}
	muted.Fprintln(c.out, "Waiting for events, press Ctrl+C to stop") //nolint:errcheck
	err := bus.Consume(ctx, func(_ context.Context, env infra_eventbus.Envelope) error {
		heading.Fprintf(c.out, "%s ", env.Type)                             //nolint:errcheck
		fmt.Fprintf(c.out, "%s %s\n", env.OccurredAt.Format("15:04:05"), env.Payload) //nolint:errcheck
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *cli) printAccount(a *account.Account) {
	state := "active"
	if !a.Active {
		state = "inactive"
	}
	role := ""
	if a.IsAdmin {
		role = " admin"
	}
	fmt.Fprintf(c.out, "%s  %-20s cash %12s  btc %14s  %s%s\n", //nolint:errcheck
		a.ID, a.Username, a.CashBalance.StringFixed(2), a.BTCBalance.StringFixed(8), state, role)
}

func (c *cli) printResult(res *ledger.Result) {
	if res.Replayed {
		muted.Fprintln(c.out, "(replayed)") //nolint:errcheck
	}
	success.Fprintf(c.out, "%s\n", res.Transaction.Description) //nolint:errcheck
	c.printAccount(res.Account)
}

func parseTarget(rawID, rawAmount string) (uuid.UUID, decimal.Decimal, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, decimal.Zero, fmt.Errorf("%w: account ID: %v", errUsage, err)
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return uuid.Nil, decimal.Zero, fmt.Errorf("%w: amount: %v", errUsage, err)
	}
	return id, amount, nil
}
