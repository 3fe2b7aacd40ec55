// Package price serves the BTC/USD spot price used by the ledger. Quotes are
// cached in a slot for a short TTL, refreshed from an ordered list of
// providers, and degrade to a stale or synthesized price when every provider
// fails.
package price

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Source reported for quotes that did not come from a provider.
const (
	SourceSynthetic = "synthetic"
	SourceCache     = "cache"
)

// Quote is one cached observation of the BTC price.
type Quote struct {
	Price     decimal.Decimal `json:"price"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Store holds the single cached quote. Implementations may be shared between
// processes; the last successful writer wins.
type Store interface {
	// Load returns false when the slot is empty.
	Load(ctx context.Context) (Quote, bool, error)
	Save(ctx context.Context, q Quote) error
}

// Provider fetches the current BTC price in USD.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (decimal.Decimal, error)
}

// Ticker is a 24h market snapshot.
type Ticker struct {
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change_24h"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	MarketCap decimal.Decimal `json:"market_cap"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// TickerProvider is implemented by providers that expose 24h market data.
type TickerProvider interface {
	Provider
	Ticker(ctx context.Context) (Ticker, error)
}

// HistoryPoint is one sample of a historical price series.
type HistoryPoint struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// HistoryProvider is implemented by providers that expose a price series.
type HistoryProvider interface {
	Provider
	History(ctx context.Context, days int) ([]HistoryPoint, error)
}

// Config tunes the cache.
type Config struct {
	TTL             time.Duration
	StaleTTL        time.Duration
	ProviderTimeout time.Duration
	DisableFallback bool
	FallbackMin     decimal.Decimal
	FallbackMax     decimal.Decimal
}

// DefaultConfig returns the production defaults: 30s freshness, 1h staleness
// bound, 5s per provider call, synthesized prices in [45000, 55000).
func DefaultConfig() Config {
	return Config{
		TTL:             30 * time.Second,
		StaleTTL:        time.Hour,
		ProviderTimeout: 5 * time.Second,
		FallbackMin:     decimal.NewFromInt(45000),
		FallbackMax:     decimal.NewFromInt(55000),
	}
}

// MaxHistoryDays bounds History requests.
const MaxHistoryDays = 365
