package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirasaad/btcvest/infra/initializer"
	"github.com/amirasaad/btcvest/pkg/app"
	"github.com/amirasaad/btcvest/pkg/config"
	"github.com/fatih/color"
)

const usage = `Usage: cli <command> [arguments]
Commands:
  price
  accounts [limit] [offset]
  open <username> [admin]
  deposit <account_id> <amount>
  invest <account_id> <amount>
  adjust <account_id> <cash|btc> <add|subtract> <amount>
  status <account_id> <active|inactive>
  history <account_id> [kind]
  portfolio <account_id>
  events tail`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		return
	}
	if err := run(os.Args[1:]); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err) //nolint:errcheck
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newCLI(app.New(deps, cfg), os.Stdout).Run(ctx, args)
}

// cli runs operator commands directly against the ledger service.
type cli struct {
	app *app.App
	out io.Writer
	// actor is recorded on admin notes.
	actor string
}

func newCLI(a *app.App, out io.Writer) *cli {
	actor := os.Getenv("USER")
	if actor == "" {
		actor = "cli"
	}
	return &cli{app: a, out: out, actor: actor}
}
