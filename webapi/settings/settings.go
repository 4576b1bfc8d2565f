package settings

import (
	"fmt"

	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	"github.com/amirasaad/finboard/pkg/middleware"
	authsvc "github.com/amirasaad/finboard/pkg/service/auth"
	settingssvc "github.com/amirasaad/finboard/pkg/service/settings"
	"github.com/amirasaad/finboard/webapi/common"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

func Routes(app *fiber.App, settingsSvc *settingssvc.Service, authSvc *authsvc.Service, cfg *config.App) {
	protected := middleware.Protected(cfg.Auth.Jwt, authSvc, func(c *fiber.Ctx, err error) error {
		return common.EnvelopeJSON(c, nil, err)
	})
	app.Get("/settings", protected, GetSettings(settingsSvc))
	app.Put("/settings/profile", protected, UpdateProfile(settingsSvc))
	app.Put("/settings/preferences", protected, UpdatePreferences(settingsSvc))
	app.Put("/settings/notifications", protected, UpdateNotifications(settingsSvc))
	app.Put("/settings/password", protected, UpdatePassword(settingsSvc))
	app.Post("/settings/reset", protected, ResetSettings(settingsSvc))
}

// bind parses and validates the body into a T, replying with the settings
// envelope on failure.
func bind[T any](c *fiber.Ctx) (*T, uuid.UUID, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		_ = common.EnvelopeJSON(c, nil, domain.ErrUnauthorized)
		return nil, uuid.Nil, false
	}
	var input T
	if err := c.BodyParser(&input); err != nil {
		_ = common.EnvelopeJSON(c, nil, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return nil, uuid.Nil, false
	}
	if err := validate.Struct(input); err != nil {
		_ = common.EnvelopeJSON(c, nil, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return nil, uuid.Nil, false
	}
	return &input, claims.UserID, true
}

// GetSettings returns the caller's grouped settings, creating the defaults
// on first access.
// @Summary Get settings
// @Tags settings
// @Produce json
// @Success 200 {object} common.Envelope
// @Failure 401 {object} common.Envelope
// @Router /settings [get]
// @Security Bearer
func GetSettings(settingsSvc *settingssvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := middleware.Claims(c)
		if !ok {
			return common.EnvelopeJSON(c, nil, domain.ErrUnauthorized)
		}
		overview, err := settingsSvc.Overview(c.UserContext(), claims.UserID)
		return common.EnvelopeJSON(c, overview, err)
	}
}

// UpdateProfile saves the profile group.
// @Summary Update profile
// @Tags settings
// @Accept json
// @Produce json
// @Param request body ProfileRequest true "Profile"
// @Success 200 {object} common.Envelope
// @Failure 400 {object} common.Envelope
// @Failure 409 {object} common.Envelope
// @Router /settings/profile [put]
// @Security Bearer
func UpdateProfile(settingsSvc *settingssvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, owner, ok := bind[ProfileRequest](c)
		if !ok {
			return nil
		}
		p, err := settingsSvc.UpdateProfile(c.UserContext(), owner, dto.ProfileUpdate{
			FullName:    input.FullName,
			PhoneNumber: input.PhoneNumber,
			AvatarURL:   input.AvatarURL,
		})
		return common.EnvelopeJSON(c, p, err)
	}
}

// UpdatePreferences saves the theme and currency.
// @Summary Update display preferences
// @Tags settings
// @Accept json
// @Produce json
// @Param request body PreferencesRequest true "Preferences"
// @Success 200 {object} common.Envelope
// @Failure 400 {object} common.Envelope
// @Failure 409 {object} common.Envelope
// @Router /settings/preferences [put]
// @Security Bearer
func UpdatePreferences(settingsSvc *settingssvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, owner, ok := bind[PreferencesRequest](c)
		if !ok {
			return nil
		}
		update := dto.PreferencesUpdate{Currency: input.Currency}
		if input.Theme != nil {
			theme := domain.Theme(*input.Theme)
			update.Theme = &theme
		}
		s, err := settingsSvc.UpdatePreferences(c.UserContext(), owner, update)
		return common.EnvelopeJSON(c, s, err)
	}
}

// UpdateNotifications saves the alert switches and thresholds.
// @Summary Update notification settings
// @Tags settings
// @Accept json
// @Produce json
// @Param request body NotificationsRequest true "Notifications"
// @Success 200 {object} common.Envelope
// @Failure 400 {object} common.Envelope
// @Failure 409 {object} common.Envelope
// @Router /settings/notifications [put]
// @Security Bearer
func UpdateNotifications(settingsSvc *settingssvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, owner, ok := bind[NotificationsRequest](c)
		if !ok {
			return nil
		}
		s, err := settingsSvc.UpdateNotifications(c.UserContext(), owner, dto.NotificationsUpdate{
			Email:                     input.EmailNotifications,
			LowBalance:                input.LowBalanceAlerts,
			LargeTransaction:          input.LargeTransactionAlerts,
			LowBalanceThreshold:       input.LowBalanceThreshold,
			LargeTransactionThreshold: input.LargeTransactionThreshold,
		})
		return common.EnvelopeJSON(c, s, err)
	}
}

// UpdatePassword changes the caller's password.
// @Summary Change password
// @Tags settings
// @Accept json
// @Produce json
// @Param request body PasswordRequest true "Security form"
// @Success 200 {object} common.Envelope
// @Failure 400 {object} common.Envelope
// @Failure 401 {object} common.Envelope
// @Router /settings/password [put]
// @Security Bearer
func UpdatePassword(settingsSvc *settingssvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, owner, ok := bind[PasswordRequest](c)
		if !ok {
			return nil
		}
		err := settingsSvc.UpdatePassword(c.UserContext(), owner, dto.PasswordUpdate{
			Current: input.CurrentPassword,
			New:     input.NewPassword,
			Confirm: input.ConfirmPassword,
		})
		return common.EnvelopeJSON(c, nil, err)
	}
}

// ResetSettings restores the default preferences and notifications.
// @Summary Reset settings
// @Tags settings
// @Produce json
// @Success 200 {object} common.Envelope
// @Router /settings/reset [post]
// @Security Bearer
func ResetSettings(settingsSvc *settingssvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := middleware.Claims(c)
		if !ok {
			return common.EnvelopeJSON(c, nil, domain.ErrUnauthorized)
		}
		s, err := settingsSvc.Reset(c.UserContext(), claims.UserID)
		return common.EnvelopeJSON(c, s, err)
	}
}
