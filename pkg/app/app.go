package app

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/amirasaad/btcvest/pkg/config"
	"github.com/amirasaad/btcvest/pkg/eventbus"
	"github.com/amirasaad/btcvest/pkg/price"
	"github.com/amirasaad/btcvest/pkg/repository"
	"github.com/amirasaad/btcvest/pkg/service/ledger"
)

// Deps contains the infrastructure the application is assembled from.
type Deps struct {
	Uow      repository.UnitOfWork
	Prices   *price.Cache
	EventBus eventbus.Bus
	Logger   *slog.Logger
	// Closers are released in reverse order by Close.
	Closers []io.Closer
}

// Close releases every closer, returning the joined errors.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.Closers) - 1; i >= 0; i-- {
		if err := d.Closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type App struct {
	Deps   *Deps
	Config *config.App
	Ledger *ledger.Service
}

func New(deps *Deps, cfg *config.App) *App {
	opts := []ledger.Option{ledger.WithEventBus(deps.EventBus)}
	if cfg != nil && cfg.Ledger != nil {
		opts = append(opts, ledger.WithMaxRetries(cfg.Ledger.MaxRetries))
	}
	app := &App{
		Deps:   deps,
		Config: cfg,
		Ledger: ledger.New(deps.Uow, deps.Prices, deps.Logger, opts...),
	}
	if sub, ok := deps.EventBus.(eventbus.Subscriber); ok {
		SetupBus(sub, deps.Logger)
	}
	return app
}

// StartPriceRefresh runs the background price refresh when configured. It
// returns immediately; the loop stops with ctx.
func (a *App) StartPriceRefresh(ctx context.Context) {
	if a.Config == nil || a.Config.Price == nil || a.Config.Price.RefreshInterval <= 0 {
		return
	}
	go func() {
		if err := a.Deps.Prices.Run(ctx, a.Config.Price.RefreshInterval); err != nil {
			a.Deps.Logger.Error("Price refresh loop stopped", "error", err)
		}
	}()
}
