// Package common holds the response envelopes, error mapping and request
// binding shared by every route package.
package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// Envelope is the {success, data, error} reply used by the balance and
// settings routes.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`     // A URI reference that identifies the problem type
	Title    string `json:"title"`              // Short, human-readable summary
	Status   int    `json:"status"`             // HTTP status code
	Detail   string `json:"detail,omitempty"`   // Human-readable explanation
	Instance string `json:"instance,omitempty"` // URI reference that identifies the specific occurrence
	Errors   any    `json:"errors,omitempty"`   // Optional: additional error details
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ProblemDetailsJSON writes an RFC 9457 reply. The optional args are a
// detail string, an explicit status, or extra error payload. Without an
// explicit status it is derived from err.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, args ...any) error {
	pd := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   ErrorToStatusCode(err),
		Instance: c.OriginalURL(),
	}
	if err != nil {
		pd.Detail = err.Error()
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case int:
			pd.Status = v
		case string:
			pd.Detail = v
		default:
			pd.Errors = v
		}
	}
	if pd.Status == fiber.StatusInternalServerError && errors.Is(err, domain.ErrTransport) {
		pd.Detail = "a backing service is unavailable"
	}
	return c.Status(pd.Status).JSON(pd, "application/problem+json")
}

// ErrorResponse maps err to a status and title and writes it as problem
// details.
func ErrorResponse(c *fiber.Ctx, err error) error {
	status := ErrorToStatusCode(err)
	return ProblemDetailsJSON(c, http.StatusText(status), err, status)
}

// SuccessResponseJSON writes the standard success envelope.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

// EnvelopeJSON writes {success, data} on a nil err and {success:false,
// error} otherwise.
func EnvelopeJSON(c *fiber.Ctx, data any, err error) error {
	if err != nil {
		return c.Status(ErrorToStatusCode(err)).JSON(Envelope{Error: err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(Envelope{Success: true, Data: data})
}

// ErrorToStatusCode maps the domain error taxonomy to HTTP status codes.
func ErrorToStatusCode(err error) int {
	var fe *fiber.Error
	switch {
	case err == nil:
		return fiber.StatusInternalServerError
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// BindAndValidate parses the request body and validates it using go-playground/validator.
// Returns a pointer to the struct (populated), or writes an error response and returns nil.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ProblemDetailsJSON(c, "Invalid request body", nil, err.Error(), fiber.StatusBadRequest)
	}
	if err := validate.Struct(input); err != nil {
		return nil, ProblemDetailsJSON(
			c,
			"Validation failed",
			nil,
			"one or more fields are invalid",
			fiber.StatusBadRequest,
			validationErrors(err),
		)
	}
	return &input, nil
}

func validationErrors(err error) any {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			out[fe.Field()] = fmt.Sprintf("failed on %s=%s", fe.Tag(), fe.Param())
		} else {
			out[fe.Field()] = "failed on " + fe.Tag()
		}
	}
	return out
}

// OwnerID returns the signed-in user's id. It writes a 401 and reports
// false when the request carries no verified claims.
func OwnerID(c *fiber.Ctx) (uuid.UUID, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		_ = ProblemDetailsJSON(c, "Unauthorized", domain.ErrUnauthorized)
		return uuid.Nil, false
	}
	return claims.UserID, true
}

// ParamID parses the :id path parameter. It writes a 400 and reports false
// when the value is not a UUID.
func ParamID(c *fiber.Ctx, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		_ = ProblemDetailsJSON(c, "Invalid "+what+" ID", nil, what+" ID must be a valid UUID", fiber.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
