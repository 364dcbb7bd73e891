package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kiranalabs/kirana/internal/domain"
	"github.com/kiranalabs/kirana/internal/handler"
	"github.com/kiranalabs/kirana/internal/payment"
)

// VerifyHandler serves POST /api/payments/verify: the synchronous signature
// check the payment UI hands the browser after payment. Purely advisory for
// UX — the order itself is only ever created by the webhook path.
type VerifyHandler struct {
	provider payment.Provider
}

// NewVerifyHandler creates a new payment verification handler.
func NewVerifyHandler(provider payment.Provider) *VerifyHandler {
	return &VerifyHandler{provider: provider}
}

// verifyRequest mirrors the fields the payment UI returns to the browser.
type verifyRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// VerifyPayment handles POST /api/payments/verify.
func (h *VerifyHandler) VerifyPayment(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return handler.ErrorResponse(c, domain.Invalid("payment.verify", "Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return handler.ErrorResponse(c, err)
	}

	if err := h.provider.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature); err != nil {
		return handler.ErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"paymentId": req.PaymentID,
	})
}
