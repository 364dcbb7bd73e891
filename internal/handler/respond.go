// Package handler provides shared HTTP plumbing for the API and webhook
// endpoints.
package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/kiranalabs/kirana/internal/domain"
)

// HTTPStatus maps a domain error code to an HTTP status.
func HTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse writes a domain error as JSON. Internal details never reach
// the client; domain.ErrorMessage substitutes a generic message for them.
func ErrorResponse(c echo.Context, err error) error {
	return c.JSON(HTTPStatus(domain.ErrorCode(err)), map[string]any{
		"success": false,
		"error":   domain.ErrorMessage(err),
	})
}

// Validator adapts go-playground/validator to echo's Validator interface.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a request payload validator.
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return domain.WrapError(err, domain.EINVALID, "handler.validate", "Invalid request payload")
	}
	return nil
}
