// Package middleware provides fiber middleware for authentication and
// request metrics.
package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/service/auth"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenKey  = "user"
	claimsKey = "claims"
)

// SessionVerifier reads claims from a verified token and checks that the
// session behind them is still live.
type SessionVerifier interface {
	Strategy() auth.Strategy
	Verify(ctx context.Context, claims *auth.Claims) error
}

// ErrorResponder writes the reply for a rejected request.
type ErrorResponder func(c *fiber.Ctx, err error) error

// Protected verifies the bearer JWT and the live session behind it. On
// success the claims are available through Claims. respond may be nil, in
// which case a 401 problem details reply is written.
func Protected(cfg *config.Jwt, verifier SessionVerifier, respond ErrorResponder) fiber.Handler {
	if respond == nil {
		respond = jwtError
	}
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.Secret)},
		ContextKey: tokenKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return respond(c, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err))
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals(tokenKey).(*jwt.Token)
			if !ok {
				return respond(c, domain.ErrUnauthorized)
			}
			claims, err := verifier.Strategy().ClaimsFromToken(token)
			if err != nil {
				return respond(c, err)
			}
			if err := verifier.Verify(c.UserContext(), claims); err != nil {
				if errors.Is(err, domain.ErrTransport) {
					return respond(c, err)
				}
				return respond(c, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err))
			}
			c.Locals(claimsKey, claims)
			return c.Next()
		},
	})
}

// Claims returns the claims stored by Protected.
func Claims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

func jwtError(c *fiber.Ctx, err error) error {
	status := fiber.StatusUnauthorized
	if errors.Is(err, domain.ErrTransport) {
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(fiber.Map{
		"type":     "about:blank",
		"title":    "Unauthorized",
		"status":   status,
		"detail":   err.Error(),
		"instance": c.OriginalURL(),
	}, "application/problem+json")
}
