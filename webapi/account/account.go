package account

import (
	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	"github.com/amirasaad/finboard/pkg/middleware"
	accountsvc "github.com/amirasaad/finboard/pkg/service/account"
	authsvc "github.com/amirasaad/finboard/pkg/service/auth"
	"github.com/amirasaad/finboard/webapi/common"
	"github.com/gofiber/fiber/v2"
)

func Routes(app *fiber.App, accountSvc *accountsvc.Service, authSvc *authsvc.Service, cfg *config.App) {
	protected := middleware.Protected(cfg.Auth.Jwt, authSvc, nil)
	app.Get("/accounts", protected, ListAccounts(accountSvc))
	app.Post("/accounts", protected, LinkAccount(accountSvc))
	app.Post("/accounts/samples", protected, SeedSamples(accountSvc))
	app.Get("/accounts/:id", protected, GetAccount(accountSvc))
	app.Delete("/accounts/:id", protected, UnlinkAccount(accountSvc))
}

// ListAccounts returns the caller's linked accounts.
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Param include_inactive query bool false "Include unlinked accounts"
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /accounts [get]
// @Security Bearer
func ListAccounts(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := common.OwnerID(c)
		if !ok {
			return nil
		}
		accts, err := accountSvc.List(c.UserContext(), owner, c.QueryBool("include_inactive"))
		if err != nil {
			return common.ErrorResponse(c, err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Accounts fetched", accts)
	}
}

// LinkAccount links an institution account to the caller.
// @Summary Link an account
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body LinkAccountRequest true "Account to link"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Router /accounts [post]
// @Security Bearer
func LinkAccount(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := common.OwnerID(c)
		if !ok {
			return nil
		}
		input, err := common.BindAndValidate[LinkAccountRequest](c)
		if input == nil {
			return err // error response already written
		}
		acct, err := accountSvc.Link(c.UserContext(), dto.AccountLink{
			OwnerID:       owner,
			Kind:          domain.Kind(input.Kind),
			AccountNumber: input.AccountNumber,
			Name:          input.Name,
			Branch:        input.Branch,
			Subtype:       input.AccountType,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't link account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Account linked", acct)
	}
}

// GetAccount returns one of the caller's accounts.
// @Summary Get account
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /accounts/{id} [get]
// @Security Bearer
func GetAccount(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := common.OwnerID(c)
		if !ok {
			return nil
		}
		id, ok := common.ParamID(c, "account")
		if !ok {
			return nil
		}
		acct, err := accountSvc.Get(c.UserContext(), owner, id)
		if err != nil {
			return common.ErrorResponse(c, err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account fetched", acct)
	}
}

// UnlinkAccount deactivates one of the caller's accounts.
// @Summary Unlink an account
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /accounts/{id} [delete]
// @Security Bearer
func UnlinkAccount(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := common.OwnerID(c)
		if !ok {
			return nil
		}
		id, ok := common.ParamID(c, "account")
		if !ok {
			return nil
		}
		if err := accountSvc.Unlink(c.UserContext(), owner, id); err != nil {
			return common.ErrorResponse(c, err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account unlinked", nil)
	}
}

// SeedSamples links sample accounts with a few weeks of activity when the
// caller has none.
// @Summary Create sample accounts
// @Tags accounts
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /accounts/samples [post]
// @Security Bearer
func SeedSamples(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := common.OwnerID(c)
		if !ok {
			return nil
		}
		seeded, err := accountSvc.SeedSamples(c.UserContext(), owner)
		if err != nil {
			return common.ErrorResponse(c, err)
		}
		msg := "Sample accounts created"
		if !seeded {
			msg = "Accounts already linked"
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, msg, fiber.Map{"seeded": seeded})
	}
}
