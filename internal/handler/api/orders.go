package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kiranalabs/kirana/internal/handler"
	"github.com/kiranalabs/kirana/internal/service"
)

// OrderHandler serves order lookup and confirmation polling.
// Both paths are strictly reads; orders are only ever created by the webhook.
type OrderHandler struct {
	orders service.OrderService
	poller *service.ConfirmationPoller
}

// NewOrderHandler creates a new order lookup handler.
func NewOrderHandler(orders service.OrderService, poller *service.ConfirmationPoller) *OrderHandler {
	return &OrderHandler{orders: orders, poller: poller}
}

// GetByPaymentID handles GET /api/orders/by-payment/:paymentID.
// A single lookup with no waiting; 404 when the order is not there yet.
// Money fields in the response (totalMinor, priceAtPurchase) are minor
// units; display formatting is the client's job.
func (h *OrderHandler) GetByPaymentID(c echo.Context) error {
	order, err := h.orders.GetOrderByPaymentID(c.Request().Context(), c.Param("paymentID"))
	if err != nil {
		return handler.ErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"order":   order,
	})
}

// AwaitConfirmation handles GET /api/orders/confirmation?payment_id=...
//
// Polls storage on a fixed interval with a hard attempt cap, then answers
// 202 "still processing" — the webhook may simply not have arrived yet, so
// exhaustion is not an error.
func (h *OrderHandler) AwaitConfirmation(c echo.Context) error {
	paymentID := c.QueryParam("payment_id")

	order, err := h.poller.AwaitOrder(c.Request().Context(), paymentID)
	if err != nil {
		if errors.Is(err, service.ErrStillProcessing) {
			return c.JSON(http.StatusAccepted, map[string]any{
				"success": false,
				"status":  "processing",
			})
		}
		return handler.ErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"order":   order,
	})
}
