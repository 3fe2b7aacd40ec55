package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "btc-usd"

// Cache serves the current BTC price, trying the slot first, then providers in order.
type Cache struct {
	providers []Provider
	store     Store
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
	random    func() float64
	group     singleflight.Group
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithRandom replaces the source used for synthesized prices. fn must return
// values in [0, 1).
func WithRandom(fn func() float64) Option {
	return func(c *Cache) { c.random = fn }
}

// NewCache creates a price cache over store with the given providers, tried in order.
func NewCache(store Store, providers []Provider, cfg Config, logger *slog.Logger, opts ...Option) *Cache {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.StaleTTL <= 0 {
		cfg.StaleTTL = def.StaleTTL
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = def.ProviderTimeout
	}
	if !cfg.FallbackMin.IsPositive() || !cfg.FallbackMax.GreaterThan(cfg.FallbackMin) {
		cfg.FallbackMin, cfg.FallbackMax = def.FallbackMin, def.FallbackMax
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		providers: providers,
		store:     store,
		cfg:       cfg,
		logger:    logger.With("component", "price_cache"),
		now:       time.Now,
		random:    rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentPrice returns a positive BTC price. It fails only with
// domain.ErrPriceUnavailable, and only when the synthesized fallback is disabled.
func (c *Cache) CurrentPrice(ctx context.Context) (decimal.Decimal, error) {
	q, err := c.Quote(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return q.Price, nil
}

// Quote is CurrentPrice with provenance.
func (c *Cache) Quote(ctx context.Context) (Quote, error) {
	if q, ok := c.load(ctx); ok && c.fresh(q) {
		return q, nil
	}
	return c.refresh(ctx, false)
}

// Refresh fetches from the providers even when the cached quote is fresh.
func (c *Cache) Refresh(ctx context.Context) (Quote, error) {
	return c.refresh(ctx, true)
}

func (c *Cache) refresh(ctx context.Context, force bool) (Quote, error) {
	// The flight outlives the caller that started it; provider calls stay
	// bounded by ProviderTimeout.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		return c.resolve(shared, force)
	})
	select {
	case <-ctx.Done():
		return Quote{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Quote{}, res.Err
		}
		if res.Shared {
			c.logger.Debug("Price refresh shared with concurrent caller")
		}
		return res.Val.(Quote), nil
	}
}

func (c *Cache) resolve(ctx context.Context, force bool) (Quote, error) {
	// Another replica may have refreshed the shared slot meanwhile.
	cached, ok := c.load(ctx)
	if !force && ok && c.fresh(cached) {
		return cached, nil
	}
	if q, found := c.fetch(ctx); found {
		c.save(ctx, q)
		return q, nil
	}
	// A cancelled fetch says nothing about the providers.
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	return c.fallback(ctx, cached, ok)
}

func (c *Cache) fetch(ctx context.Context) (Quote, bool) {
	for _, p := range c.providers {
		if ctx.Err() != nil {
			break
		}
		pctx, cancel := context.WithTimeout(ctx, c.cfg.ProviderTimeout)
		price, err := p.Fetch(pctx)
		cancel()
		if err != nil {
			c.logger.Warn("Failed to get price from provider", "provider", p.Name(), "error", err)
			continue
		}
		if !price.IsPositive() {
			c.logger.Warn("Invalid price received from provider", "provider", p.Name(), "price", price)
			continue
		}
		c.logger.Debug("Price retrieved from provider", "provider", p.Name(), "price", price)
		return Quote{Price: price, Source: p.Name(), FetchedAt: c.now()}, true
	}
	return Quote{}, false
}

func (c *Cache) fallback(ctx context.Context, cached Quote, ok bool) (Quote, error) {
	if ok && c.now().Sub(cached.FetchedAt) < c.cfg.StaleTTL {
		c.logger.Warn("All price providers failed, serving stale price",
			"price", cached.Price, "age", c.now().Sub(cached.FetchedAt))
		return cached, nil
	}
	if c.cfg.DisableFallback {
		c.logger.Error("All price providers failed and no usable cached price")
		return Quote{}, domain.ErrPriceUnavailable
	}
	q := Quote{Price: c.synthesize(), Source: SourceSynthetic, FetchedAt: c.now()}
	c.logger.Warn("All price providers failed, using synthesized price", "price", q.Price)
	c.save(ctx, q)
	return q, nil
}

func (c *Cache) synthesize() decimal.Decimal {
	span := c.cfg.FallbackMax.Sub(c.cfg.FallbackMin)
	return c.cfg.FallbackMin.Add(span.Mul(decimal.NewFromFloat(c.random()))).Truncate(2)
}

func (c *Cache) fresh(q Quote) bool {
	return c.now().Sub(q.FetchedAt) < c.cfg.TTL
}

// Store errors degrade to a miss.
func (c *Cache) load(ctx context.Context) (Quote, bool) {
	q, ok, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("Price slot load failed", "error", err)
		return Quote{}, false
	}
	if ok && !q.Price.IsPositive() {
		return Quote{}, false
	}
	return q, ok
}

func (c *Cache) save(ctx context.Context, q Quote) {
	if err := c.store.Save(ctx, q); err != nil {
		c.logger.Warn("Price slot save failed", "error", err)
	}
}

// Ticker returns a 24h snapshot from the first provider that offers one. When
// none succeeds it reports the current price with zero change.
func (c *Cache) Ticker(ctx context.Context) (Ticker, error) {
	for _, p := range c.providers {
		tp, ok := p.(TickerProvider)
		if !ok {
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, c.cfg.ProviderTimeout)
		t, err := tp.Ticker(pctx)
		cancel()
		if err != nil || !t.Price.IsPositive() {
			c.logger.Warn("Failed to get ticker from provider", "provider", p.Name(), "error", err)
			continue
		}
		t.Source = p.Name()
		t.FetchedAt = c.now()
		c.save(ctx, Quote{Price: t.Price, Source: t.Source, FetchedAt: t.FetchedAt})
		return t, nil
	}
	q, err := c.Quote(ctx)
	if err != nil {
		return Ticker{}, err
	}
	return Ticker{Price: q.Price, Source: SourceCache, FetchedAt: q.FetchedAt}, nil
}

// History returns up to days of daily-or-finer price points, or an empty
// series when no provider can serve it.
func (c *Cache) History(ctx context.Context, days int) ([]HistoryPoint, error) {
	if days < 1 || days > MaxHistoryDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", domain.ErrValidation, MaxHistoryDays)
	}
	for _, p := range c.providers {
		hp, ok := p.(HistoryProvider)
		if !ok {
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, c.cfg.ProviderTimeout)
		points, err := hp.History(pctx, days)
		cancel()
		if err != nil {
			c.logger.Warn("Failed to get price history from provider", "provider", p.Name(), "error", err)
			continue
		}
		return points, nil
	}
	return []HistoryPoint{}, nil
}

// Run refreshes the slot every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: refresh interval must be positive", domain.ErrValidation)
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := c.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Warn("Background price refresh failed", "error", err)
			}
		}
	}
}
