// Package testutils provides an in-memory application and request helpers for
// route tests.
package testutils

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	infra_cache "github.com/amirasaad/btcvest/infra/cache"
	infra_eventbus "github.com/amirasaad/btcvest/infra/eventbus"
	infra_provider "github.com/amirasaad/btcvest/infra/provider"
	"github.com/amirasaad/btcvest/infra/repository/memory"
	"github.com/amirasaad/btcvest/pkg/app"
	"github.com/amirasaad/btcvest/pkg/config"
	"github.com/amirasaad/btcvest/pkg/domain/account"
	"github.com/amirasaad/btcvest/pkg/price"
	"github.com/amirasaad/btcvest/pkg/service/ledger"
	"github.com/amirasaad/btcvest/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const JWTSecret = "test-secret"

// TestPrice is the BTC price served by the static provider.
var TestPrice = decimal.NewFromInt(50000)

// WebTestSuite runs the full Fiber app over the memory store and a static
// price provider.
type WebTestSuite struct {
	suite.Suite
	App    *app.App
	Fiber  *fiber.App
	Bus    *infra_eventbus.MemoryEventBus
	Config *config.App
}

func TestConfig() *config.App {
	return &config.App{
		Env:       "test",
		Auth:      &config.Auth{Jwt: &config.Jwt{Secret: JWTSecret}},
		RateLimit: &config.RateLimit{MaxRequests: 1000, Window: time.Minute},
		Ledger:    &config.Ledger{MaxRetries: 5},
	}
}

func (s *WebTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.Config = TestConfig()
	s.Bus = infra_eventbus.NewWithMemory(logger)
	cfg := price.DefaultConfig()
	cfg.DisableFallback = true
	cache := price.NewCache(
		infra_cache.NewMemorySlot(),
		[]price.Provider{infra_provider.NewStatic(TestPrice)},
		cfg,
		logger,
	)
	s.App = app.New(&app.Deps{
		Uow:      memory.NewUoW(memory.NewStore()),
		Prices:   cache,
		EventBus: s.Bus,
		Logger:   logger,
	}, s.Config)
	s.Fiber = webapi.SetupApp(s.App)
}

// Token signs a bearer token for the given account.
func (s *WebTestSuite) Token(id uuid.UUID, username string, admin bool) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      id.String(),
		"username": username,
		"admin":    admin,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(JWTSecret))
	s.Require().NoError(err)
	return token
}

// OpenAccount creates an account holding cash and returns it with a token.
func (s *WebTestSuite) OpenAccount(username string, admin bool, cash string) (*account.Account, string) {
	ctx := context.Background()
	a, err := s.App.Ledger.OpenAccount(ctx, ledger.OpenAccountRequest{Username: username, IsAdmin: admin})
	s.Require().NoError(err)
	if cash != "" && cash != "0" {
		res, err := s.App.Ledger.Deposit(ctx, a.ID, decimal.RequireFromString(cash), ledger.Meta{})
		s.Require().NoError(err)
		a = res.Account
	}
	return a, s.Token(a.ID, username, admin)
}

// MakeRequest sends a request through the app. Extra headers are given as
// key, value pairs.
func (s *WebTestSuite) MakeRequest(method, path, body, token string, headers ...string) *http.Response {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.Fiber.Test(req, -1)
	s.Require().NoError(err)
	return resp
}

// Decode reads a JSON body into out and closes it.
func (s *WebTestSuite) Decode(resp *http.Response, out any) {
	defer resp.Body.Close() //nolint:errcheck
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}
