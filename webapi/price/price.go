// Package price serves the cached BTC/USD price. The routes are public.
package price

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/btcvest/pkg/domain"
	"github.com/amirasaad/btcvest/pkg/price"
	"github.com/amirasaad/btcvest/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type QuoteResponse struct {
	Price     decimal.Decimal `json:"price"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Routes registers GET /price, /price/ticker and /price/history.
func Routes(app *fiber.App, cache *price.Cache) {
	g := app.Group("/price")
	g.Get("/", GetPrice(cache))
	g.Get("/ticker", GetTicker(cache))
	g.Get("/history", GetHistory(cache))
}

func GetPrice(cache *price.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := cache.Quote(c.UserContext())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Price unavailable", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Price fetched", QuoteResponse{
			Price:     q.Price,
			Source:    q.Source,
			FetchedAt: q.FetchedAt,
		})
	}
}

func GetTicker(cache *price.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, err := cache.Ticker(c.UserContext())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Ticker unavailable", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Ticker fetched", t)
	}
}

// GetHistory returns daily points; days defaults to 7.
func GetHistory(cache *price.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		days := c.QueryInt("days", 7)
		if days < 1 || days > price.MaxHistoryDays {
			err := errors.Join(domain.ErrValidation, fmt.Errorf("days must be between 1 and %d", price.MaxHistoryDays))
			return common.ProblemDetailsJSON(c, "Invalid history range", err)
		}
		points, err := cache.History(c.UserContext(), days)
		if err != nil {
			return common.ProblemDetailsJSON(c, "History unavailable", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "History fetched", points)
	}
}
