package balance

import (
	"errors"

	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/middleware"
	authsvc "github.com/amirasaad/finboard/pkg/service/auth"
	balancesvc "github.com/amirasaad/finboard/pkg/service/balance"
	"github.com/amirasaad/finboard/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// AggregatorFactory returns a fresh aggregator over fetcher.
type AggregatorFactory func(fetcher balancesvc.Fetcher) *balancesvc.Aggregator

func Routes(
	app *fiber.App,
	balanceSvc *balancesvc.Service,
	authSvc *authsvc.Service,
	newAggregator AggregatorFactory,
	cfg *config.App,
) {
	protected := middleware.Protected(cfg.Auth.Jwt, authSvc, func(c *fiber.Ctx, err error) error {
		return envelope(c, nil, err)
	})
	app.Get("/balance", protected, Overview(balanceSvc, newAggregator))
	app.Get("/balance/:kind", protected, GetBalance(balanceSvc))
}

// GetBalance returns the balance of the caller's active account of a kind.
// @Summary Get balance by account kind
// @Description Balance derived from the completed transactions of the caller's active account
// @Tags balance
// @Produce json
// @Param kind path string true "Account kind" Enums(mpesa, sbm, coop)
// @Success 200 {object} common.Envelope
// @Failure 401 {object} common.Envelope
// @Failure 404 {object} common.Envelope
// @Failure 500 {object} common.Envelope
// @Router /balance/{kind} [get]
// @Security Bearer
func GetBalance(balanceSvc *balancesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := middleware.Claims(c)
		if !ok {
			return envelope(c, nil, domain.ErrUnauthorized)
		}
		kind, err := domain.ParseKind(c.Params("kind"))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(common.Envelope{Error: err.Error()})
		}
		b, err := balanceSvc.Get(c.UserContext(), claims.UserID, kind)
		return envelope(c, b, err)
	}
}

// Overview fetches every kind concurrently and reports each one's state
// plus the total of the kinds that loaded.
// @Summary Balance overview
// @Tags balance
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} common.Envelope
// @Router /balance [get]
// @Security Bearer
func Overview(balanceSvc *balancesvc.Service, newAggregator AggregatorFactory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := middleware.Claims(c)
		if !ok {
			return envelope(c, nil, domain.ErrUnauthorized)
		}
		agg := newAggregator(balanceSvc.ForOwner(claims.UserID))
		defer agg.Close()

		// Per-kind failures are reported in each kind's state.
		_ = agg.FetchAll(c.UserContext())
		snap := agg.Snapshot()

		out := fiber.Map{"total_balance": snap.Total}
		for _, k := range domain.Kinds() {
			out[string(k)] = snap.States[k]
		}
		return c.Status(fiber.StatusOK).JSON(out)
	}
}

// envelope writes the balance reply. Unlike other routes an ambiguous
// account is a server-side failure here.
func envelope(c *fiber.Ctx, data any, err error) error {
	if err != nil && errors.Is(err, domain.ErrAmbiguousAccount) {
		return c.Status(fiber.StatusInternalServerError).JSON(common.Envelope{Error: err.Error()})
	}
	return common.EnvelopeJSON(c, data, err)
}
