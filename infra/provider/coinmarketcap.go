package provider

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amirasaad/btcvest/pkg/price"
	"github.com/shopspring/decimal"
)

// DefaultCoinMarketCapURL is the CoinMarketCap pro API.
const DefaultCoinMarketCapURL = "https://pro-api.coinmarketcap.com"

// ErrMissingAPIKey is returned when a keyed provider is called without a key.
var ErrMissingAPIKey = errors.New("api key not configured")

// CoinMarketCap implements price.Provider and price.TickerProvider.
type CoinMarketCap struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCoinMarketCap creates a CoinMarketCap provider.
func NewCoinMarketCap(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *CoinMarketCap {
	if baseURL == "" {
		baseURL = DefaultCoinMarketCapURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CoinMarketCap{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
		logger:     logger,
	}
}

// Name returns "coinmarketcap".
func (p *CoinMarketCap) Name() string { return "coinmarketcap" }

type cmcQuotesLatest struct {
	Data map[string]struct {
		Quote map[string]struct {
			Price            decimal.Decimal `json:"price"`
			Volume24h        decimal.Decimal `json:"volume_24h"`
			PercentChange24h decimal.Decimal `json:"percent_change_24h"`
			MarketCap        decimal.Decimal `json:"market_cap"`
		} `json:"quote"`
	} `json:"data"`
}

func (p *CoinMarketCap) ticker(ctx context.Context) (price.Ticker, error) {
	if p.apiKey == "" {
		return price.Ticker{}, ErrMissingAPIKey
	}
	var body cmcQuotesLatest
	err := getJSON(ctx, p.httpClient,
		p.baseURL+"/v1/cryptocurrency/quotes/latest?symbol=BTC&convert=USD",
		map[string]string{"X-CMC_PRO_API_KEY": p.apiKey},
		&body)
	if err != nil {
		return price.Ticker{}, err
	}
	btc, ok := body.Data["BTC"]
	if !ok {
		return price.Ticker{}, errors.New("BTC missing from response")
	}
	usd, ok := btc.Quote["USD"]
	if !ok {
		return price.Ticker{}, errors.New("USD quote missing from response")
	}
	return price.Ticker{
		Price:     usd.Price,
		Change24h: usd.PercentChange24h,
		Volume24h: usd.Volume24h,
		MarketCap: usd.MarketCap,
	}, nil
}

// Fetch returns the BTC/USD spot price.
func (p *CoinMarketCap) Fetch(ctx context.Context) (decimal.Decimal, error) {
	t, err := p.ticker(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return t.Price, nil
}

// Ticker returns price with 24h change, volume and market cap.
func (p *CoinMarketCap) Ticker(ctx context.Context) (price.Ticker, error) {
	return p.ticker(ctx)
}
