package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amirasaad/btcvest/pkg/price"
	"github.com/shopspring/decimal"
)

// DefaultCoinGeckoURL is the public CoinGecko v3 API.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGecko implements price.Provider, price.TickerProvider and
// price.HistoryProvider against the CoinGecko public API.
type CoinGecko struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCoinGecko creates a CoinGecko provider. An empty baseURL uses DefaultCoinGeckoURL.
func NewCoinGecko(baseURL string, timeout time.Duration, logger *slog.Logger) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CoinGecko{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
		logger:     logger,
	}
}

// Name returns "coingecko".
func (p *CoinGecko) Name() string { return "coingecko" }

type coinGeckoSimplePrice struct {
	Bitcoin *struct {
		USD          decimal.Decimal `json:"usd"`
		USD24hChange decimal.Decimal `json:"usd_24h_change"`
		USD24hVol    decimal.Decimal `json:"usd_24h_vol"`
		USDMarketCap decimal.Decimal `json:"usd_market_cap"`
	} `json:"bitcoin"`
}

func (p *CoinGecko) simplePrice(ctx context.Context, extended bool) (*coinGeckoSimplePrice, error) {
	q := url.Values{}
	q.Set("ids", "bitcoin")
	q.Set("vs_currencies", "usd")
	if extended {
		q.Set("include_24hr_change", "true")
		q.Set("include_24hr_vol", "true")
		q.Set("include_market_cap", "true")
	}
	var body coinGeckoSimplePrice
	if err := getJSON(ctx, p.httpClient, p.baseURL+"/simple/price?"+q.Encode(), nil, &body); err != nil {
		return nil, err
	}
	if body.Bitcoin == nil {
		return nil, errors.New("bitcoin missing from response")
	}
	return &body, nil
}

// Fetch returns the BTC/USD spot price.
func (p *CoinGecko) Fetch(ctx context.Context) (decimal.Decimal, error) {
	body, err := p.simplePrice(ctx, false)
	if err != nil {
		return decimal.Zero, err
	}
	return body.Bitcoin.USD, nil
}

// Ticker returns price with 24h change, volume and market cap.
func (p *CoinGecko) Ticker(ctx context.Context) (price.Ticker, error) {
	body, err := p.simplePrice(ctx, true)
	if err != nil {
		return price.Ticker{}, err
	}
	b := body.Bitcoin
	return price.Ticker{
		Price:     b.USD,
		Change24h: b.USD24hChange,
		Volume24h: b.USD24hVol,
		MarketCap: b.USDMarketCap,
	}, nil
}

type coinGeckoMarketChart struct {
	Prices [][]decimal.Decimal `json:"prices"`
}

// History returns the market chart for the last days.
func (p *CoinGecko) History(ctx context.Context, days int) ([]price.HistoryPoint, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", strconv.Itoa(days))
	var body coinGeckoMarketChart
	if err := getJSON(ctx, p.httpClient, p.baseURL+"/coins/bitcoin/market_chart?"+q.Encode(), nil, &body); err != nil {
		return nil, err
	}
	points := make([]price.HistoryPoint, 0, len(body.Prices))
	for _, pair := range body.Prices {
		if len(pair) != 2 {
			return nil, fmt.Errorf("malformed price point: %v", pair)
		}
		points = append(points, price.HistoryPoint{
			Time:  time.UnixMilli(pair[0].IntPart()).UTC(),
			Price: pair[1],
		})
	}
	p.logger.Debug("Price history retrieved", "provider", p.Name(), "days", days, "points", len(points))
	return points, nil
}
