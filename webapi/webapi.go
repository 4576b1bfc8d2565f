// Package webapi provides HTTP handlers and API endpoints for finboard.
// It is organized into sub-packages per area:
// - auth: sign-up, login, logout and the current identity
// - balance: per-kind balances and the aggregated overview
// - account: linked institution accounts
// - transaction: the transaction feed, CRUD and export
// - settings: profile, preferences, notifications and password
package webapi

import (
	"errors"
	"strings"

	"github.com/amirasaad/finboard/infra/metrics"
	"github.com/amirasaad/finboard/pkg/app"
	"github.com/amirasaad/finboard/pkg/middleware"
	accountweb "github.com/amirasaad/finboard/webapi/account"
	authweb "github.com/amirasaad/finboard/webapi/auth"
	balanceweb "github.com/amirasaad/finboard/webapi/balance"
	"github.com/amirasaad/finboard/webapi/common"
	settingsweb "github.com/amirasaad/finboard/webapi/settings"
	transactionweb "github.com/amirasaad/finboard/webapi/transaction"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// SetupApp Initialize Fiber with custom configuration. m may be nil, in
// which case /metrics is not served.
func SetupApp(a *app.App, m *metrics.Metrics) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		AppName: "finboard",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	if m != nil {
		fiberApp.Use(middleware.Metrics(m))
	}

	// Uses X-Forwarded-For header when behind a proxy
	// Falls back to X-Real-IP or direct IP if needed
	fiberApp.Use(limiter.New(limiter.Config{
		Max:        a.Config.RateLimit.MaxRequests,
		Expiration: a.Config.RateLimit.Window,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
				// Take the first IP in the chain
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
	if a.Config.Env != "test" {
		fiberApp.Use(logger.New())
	}

	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("finboard API is running! 🚀")
	})
	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if m != nil {
		fiberApp.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	authweb.Routes(fiberApp, a.AuthService, a.Config)
	balanceweb.Routes(fiberApp, a.BalanceService, a.AuthService, a.Aggregator, a.Config)
	accountweb.Routes(fiberApp, a.AccountService, a.AuthService, a.Config)
	transactionweb.Routes(fiberApp, a.TransactionService, a.AuthService, a.Config)
	settingsweb.Routes(fiberApp, a.SettingsService, a.AuthService, a.Config)
	return fiberApp
}
