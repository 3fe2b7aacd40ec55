// Package app assembles the ledger from its dependencies and registers the
// in-process event handlers.
package app

import (
	"context"
	"log/slog"

	"github.com/amirasaad/btcvest/pkg/domain/events"
	"github.com/amirasaad/btcvest/pkg/eventbus"
)

// SetupBus registers the audit handlers with an in-process bus.
func SetupBus(bus eventbus.Subscriber, logger *slog.Logger) {
	audit := logger.With("handler", "audit")

	bus.Subscribe(events.TypeTransactionRecorded, func(_ context.Context, e eventbus.Event) error {
		evt, ok := e.(events.TransactionRecorded)
		if !ok {
			return nil
		}
		audit.Info("📒 Transaction recorded",
			"account_id", evt.AccountID,
			"transaction_id", evt.TransactionID,
			"kind", evt.Kind,
			"cash_delta", evt.CashDelta,
			"btc_delta", evt.BTCDelta,
			"btc_price", evt.BTCPrice,
			"actor", evt.Actor,
		)
		return nil
	})
	bus.Subscribe(events.TypeAccountOpened, func(_ context.Context, e eventbus.Event) error {
		if evt, ok := e.(events.AccountOpened); ok {
			audit.Info("🆕 Account opened", "account_id", evt.AccountID, "username", evt.Username)
		}
		return nil
	})
	bus.Subscribe(events.TypeAccountStatusChanged, func(_ context.Context, e eventbus.Event) error {
		if evt, ok := e.(events.AccountStatusChanged); ok {
			audit.Info("🔒 Account status changed", "account_id", evt.AccountID, "active", evt.Active, "actor", evt.Actor)
		}
		return nil
	})
}
