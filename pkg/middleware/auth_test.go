package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirasaad/btcvest/pkg/config"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims, key string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func protectedApp() *fiber.App {
	app := fiber.New()
	app.Use(JwtProtected(&config.Jwt{Secret: secret}))
	app.Get("/", func(c *fiber.Ctx) error {
		p, err := CurrentPrincipal(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": p.AccountID, "admin": p.Admin})
	})
	app.Get("/admin", AdminOnly(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func request(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestJwtProtected_MissingToken(t *testing.T) {
	resp := request(t, protectedApp(), "/", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestJwtProtected_WrongKey(t *testing.T) {
	token := sign(t, jwt.MapClaims{"sub": uuid.NewString()}, "other")
	resp := request(t, protectedApp(), "/", token)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get(fiber.HeaderContentType))
}

func TestJwtProtected_Expired(t *testing.T) {
	token := sign(t, jwt.MapClaims{"sub": uuid.NewString(), "exp": time.Now().Add(-time.Hour).Unix()}, secret)
	resp := request(t, protectedApp(), "/", token)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJwtProtected_Valid(t *testing.T) {
	token := sign(t, jwt.MapClaims{"sub": uuid.NewString(), "username": "alice"}, secret)
	resp := request(t, protectedApp(), "/", token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = request(t, protectedApp(), "/admin", token)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminOnly_AllowsAdmin(t *testing.T) {
	token := sign(t, jwt.MapClaims{"sub": uuid.NewString(), "admin": true}, secret)
	resp := request(t, protectedApp(), "/admin", token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPrincipalFromToken(t *testing.T) {
	id := uuid.New()
	p, err := PrincipalFromToken(&jwt.Token{Claims: jwt.MapClaims{"sub": id.String(), "username": "bob", "admin": true}})
	require.NoError(t, err)
	assert.Equal(t, Principal{AccountID: id, Username: "bob", Admin: true}, p)

	_, err = PrincipalFromToken(&jwt.Token{Claims: jwt.MapClaims{"sub": "not-a-uuid"}})
	assert.Error(t, err)
	_, err = PrincipalFromToken(&jwt.Token{Claims: jwt.MapClaims{}})
	assert.Error(t, err)
}

func TestJwtError_Malformed(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		return jwtError(c, errors.New("Missing or malformed JWT"))
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestJwtError_Invalid(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		return jwtError(c, errors.New("any other error"))
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
