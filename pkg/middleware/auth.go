// Package middleware verifies bearer tokens issued by the identity service and
// exposes the caller as a Principal.
package middleware

import (
	"errors"
	"strings"

	"github.com/amirasaad/btcvest/pkg/config"
	"github.com/amirasaad/btcvest/pkg/domain"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	contextKey   = "user"
	principalKey = "principal"
)

// Principal is the authenticated caller.
type Principal struct {
	AccountID uuid.UUID
	Username  string
	Admin     bool
}

// JwtProtected verifies HS256 bearer tokens signed with cfg.Secret.
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{JWTAlg: jwt.SigningMethodHS256.Alg(), Key: []byte(cfg.Secret)},
		ContextKey:   contextKey,
		ErrorHandler: jwtError,
	})
}

// AdminOnly rejects callers without the admin claim. It must run after
// JwtProtected.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := CurrentPrincipal(c)
		if err != nil {
			return problem(c, fiber.StatusUnauthorized, "Unauthorized", err.Error())
		}
		if !p.Admin {
			return problem(c, fiber.StatusForbidden, "Forbidden", "admin access required")
		}
		return c.Next()
	}
}

// CurrentPrincipal reads the caller from the verified token.
func CurrentPrincipal(c *fiber.Ctx) (Principal, error) {
	if p, ok := c.Locals(principalKey).(Principal); ok {
		return p, nil
	}
	token, ok := c.Locals(contextKey).(*jwt.Token)
	if !ok || token == nil {
		return Principal{}, errors.New("missing user context")
	}
	p, err := PrincipalFromToken(token)
	if err != nil {
		return Principal{}, err
	}
	c.Locals(principalKey, p)
	return p, nil
}

// PrincipalFromToken extracts the sub, username and admin claims.
func PrincipalFromToken(token *jwt.Token) (Principal, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, domain.ErrUnauthorized
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Principal{}, errors.Join(domain.ErrUnauthorized, errors.New("missing sub claim"))
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return Principal{}, errors.Join(domain.ErrUnauthorized, err)
	}
	username, _ := claims["username"].(string)
	admin, _ := claims["admin"].(bool)
	return Principal{AccountID: id, Username: username, Admin: admin}, nil
}

func jwtError(c *fiber.Ctx, err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "missing or malformed") {
		return problem(c, fiber.StatusBadRequest, "Bad Request", "Missing or malformed JWT")
	}
	return problem(c, fiber.StatusUnauthorized, "Unauthorized", "Invalid or expired JWT")
}

func problem(c *fiber.Ctx, status int, title, detail string) error {
	return c.Status(status).JSON(fiber.Map{
		"type":     "about:blank",
		"title":    title,
		"status":   status,
		"detail":   detail,
		"instance": c.OriginalURL(),
	}, "application/problem+json")
}
