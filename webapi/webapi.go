// Package webapi provides the HTTP surface of the ledger. It is organized into
// sub-packages per route group:
// - account: balances, deposits, investments and history for the caller
// - admin: adjustments, status changes and manual entries
// - price: the cached BTC price
package webapi

import (
	"errors"
	"strings"

	"github.com/amirasaad/btcvest/pkg/app"
	accountweb "github.com/amirasaad/btcvest/webapi/account"
	adminweb "github.com/amirasaad/btcvest/webapi/admin"
	"github.com/amirasaad/btcvest/webapi/common"
	priceweb "github.com/amirasaad/btcvest/webapi/price"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	// Uses X-Forwarded-For header when behind a proxy, then X-Real-IP, then
	// the direct IP.
	fiberApp.Use(limiter.New(limiter.Config{
		Max:        a.Config.RateLimit.MaxRequests,
		Expiration: a.Config.RateLimit.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
				if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
					return strings.TrimSpace(forwardedFor[:commaIndex])
				}
				return strings.TrimSpace(forwardedFor)
			}
			if realIP := c.Get("X-Real-IP"); realIP != "" {
				return realIP
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(
				c,
				"Too Many Requests",
				errors.New("rate limit exceeded"),
				fiber.StatusTooManyRequests,
			)
		},
	}))
	fiberApp.Use(recover.New())
	if a.Config.Env == "development" {
		fiberApp.Use(logger.New())
	}

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("btcvest ledger is running! 🚀")
	})

	priceweb.Routes(fiberApp, a.Deps.Prices)
	accountweb.Routes(fiberApp, a.Ledger, a.Config)
	adminweb.Routes(fiberApp, a.Ledger, a.Config)
	return fiberApp
}
