// Package api implements the buyer-facing JSON endpoints.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kiranalabs/kirana/internal/domain"
	"github.com/kiranalabs/kirana/internal/handler"
	"github.com/kiranalabs/kirana/internal/service"
)

// CheckoutHandler serves POST /api/checkout.
type CheckoutHandler struct {
	checkout service.CheckoutService
	logger   zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(checkout service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, logger: logger}
}

// checkoutRequest is the cart snapshot the browser submits.
type checkoutRequest struct {
	Items []domain.CartLine `json:"items" validate:"required,min=1,dive"`
}

// checkoutResponse is what the browser needs to open the payment UI.
// Processor secrets never appear here.
type checkoutResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// CreateSession handles POST /api/checkout.
func (h *CheckoutHandler) CreateSession(c echo.Context) error {
	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return handler.ErrorResponse(c, domain.Invalid("checkout.bind", "Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return handler.ErrorResponse(c, err)
	}

	session, err := h.checkout.CreateSession(c.Request().Context(), req.Items)
	if err != nil {
		if domain.ErrorCode(err) == domain.EINTERNAL {
			h.logger.Error().Err(err).Msg("checkout session creation failed")
		}
		return handler.ErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, checkoutResponse{
		Success:   true,
		SessionID: session.SessionID,
		Amount:    session.AmountMinor,
		Currency:  session.Currency,
	})
}
