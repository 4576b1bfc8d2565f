package auth

import (
	"errors"

	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/middleware"
	authsvc "github.com/amirasaad/finboard/pkg/service/auth"
	"github.com/amirasaad/finboard/webapi/common"
	"github.com/gofiber/fiber/v2"
)

func Routes(app *fiber.App, authSvc *authsvc.Service, cfg *config.App) {
	protected := middleware.Protected(cfg.Auth.Jwt, authSvc, nil)
	app.Post("/auth/signup", Signup(authSvc))
	app.Post("/auth/login", Login(authSvc))
	app.Post("/auth/logout", protected, Logout(authSvc))
	app.Get("/auth/me", protected, Me(authSvc))
}

// Signup creates an identity and signs it in.
// @Summary Sign up
// @Description Create an identity with email and password and open a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupInput true "Sign-up data"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Failure 500 {object} common.ProblemDetails
// @Router /auth/signup [post]
func Signup(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[SignupInput](c)
		if input == nil {
			return err // Error already written by BindAndValidate
		}
		sess, err := authSvc.SignUp(c.UserContext(), input.Email, input.Password)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't sign up", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Signed up", sess)
	}
}

// Login handles user authentication and returns a JWT token.
// @Summary User login
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginInput true "Login credentials"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 429 {object} common.ProblemDetails
// @Failure 500 {object} common.ProblemDetails
// @Router /auth/login [post]
func Login(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[LoginInput](c)
		if input == nil {
			return err // Error already written by BindAndValidate
		}
		sess, err := authSvc.SignIn(c.UserContext(), input.Email, input.Password)
		if errors.Is(err, domain.ErrUnauthorized) {
			return common.ProblemDetailsJSON(c, "Invalid email or password", nil, "Email or password is incorrect", fiber.StatusUnauthorized)
		}
		if err != nil {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Success login", fiber.Map{
			"token":      sess.Token,
			"expires_at": sess.ExpiresAt,
		})
	}
}

// Logout revokes the current session.
// @Summary Log out
// @Tags auth
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /auth/logout [post]
// @Security Bearer
func Logout(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := middleware.Claims(c)
		if !ok {
			return common.ProblemDetailsJSON(c, "Unauthorized", domain.ErrUnauthorized)
		}
		if err := authSvc.SignOut(c.UserContext(), claims); err != nil {
			return common.ErrorResponse(c, err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Signed out", nil)
	}
}

// Me returns the signed-in identity.
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /auth/me [get]
// @Security Bearer
func Me(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := middleware.Claims(c)
		if !ok {
			return common.ProblemDetailsJSON(c, "Unauthorized", domain.ErrUnauthorized)
		}
		user, err := authSvc.CurrentUser(c.UserContext(), claims.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			// The identity behind a live session is gone.
			return common.ProblemDetailsJSON(c, "Unauthorized", domain.ErrUnauthorized)
		}
		if err != nil {
			return common.ErrorResponse(c, err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "User found", user)
	}
}
