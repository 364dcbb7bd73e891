// Package webhook handles asynchronous payment processor callbacks.
package webhook

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kiranalabs/kirana/internal/domain"
	"github.com/kiranalabs/kirana/internal/payment"
	"github.com/kiranalabs/kirana/internal/service"
	"github.com/kiranalabs/kirana/internal/telemetry"
)

// SignatureHeader carries the processor's webhook signature.
const SignatureHeader = "X-Razorpay-Signature"

// RazorpayHandler processes Razorpay webhook deliveries.
//
// Deliveries are at-least-once and possibly concurrent for the same payment.
// The response contract, driving the processor's retry policy:
//   - 2xx only after successful processing or a confirmed-duplicate no-op
//   - 4xx for signature failure or permanently bad payloads (no retry)
//   - 5xx for transient internal failure (processor retries)
type RazorpayHandler struct {
	provider payment.Provider
	orders   service.OrderService
	metrics  *telemetry.BusinessMetrics
	logger   zerolog.Logger
}

// NewRazorpayHandler creates a new Razorpay webhook handler.
func NewRazorpayHandler(provider payment.Provider, orders service.OrderService, metrics *telemetry.BusinessMetrics, logger zerolog.Logger) *RazorpayHandler {
	return &RazorpayHandler{
		provider: provider,
		orders:   orders,
		metrics:  metrics,
		logger:   logger.With().Str("component", "webhook").Logger(),
	}
}

// HandleWebhook processes one webhook delivery.
func (h *RazorpayHandler) HandleWebhook(c echo.Context) error {
	start := time.Now()

	// The body must be read raw, before any deserialization that could
	// normalize it, or signature verification will spuriously fail.
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.countRejected("body_read")
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "failed to read request body"})
	}

	signature := c.Request().Header.Get(SignatureHeader)
	if err := h.provider.VerifyWebhookSignature(payload, signature); err != nil {
		// Logged for operator investigation as a potential tampering
		// attempt. Never retried: the same signature will fail again.
		h.countRejected("signature")
		h.logger.Warn().
			Err(err).
			Str("remote_ip", c.RealIP()).
			Int("payload_bytes", len(payload)).
			Msg("webhook signature rejected")

		if domain.ErrorCode(err) == domain.EINTERNAL {
			return c.JSON(http.StatusInternalServerError, map[string]any{"error": "webhook misconfigured"})
		}
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid signature"})
	}

	event, err := payment.ParseWebhookEvent(payload)
	if err != nil {
		h.countRejected("parse")
		h.logger.Warn().Err(err).Msg("webhook payload unparseable")
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid payload"})
	}

	if h.metrics != nil {
		h.metrics.WebhookReceived.WithLabelValues(event.EventType).Inc()
		defer func() {
			h.metrics.WebhookLatency.WithLabelValues(event.EventType).Observe(time.Since(start).Seconds())
		}()
	}

	// Only captured payments materialize orders; everything else is
	// acknowledged and dropped.
	if event.EventType != payment.EventPaymentCaptured {
		h.logger.Debug().Str("event_type", event.EventType).Msg("ignoring webhook event")
		return c.JSON(http.StatusOK, map[string]any{"received": true})
	}

	order, err := h.orders.MaterializeOrder(c.Request().Context(), event)
	if err != nil {
		code := domain.ErrorCode(err)

		// Permanently bad input: retrying the identical payload cannot
		// succeed, so tell the processor to stop.
		if code == domain.EINVALID {
			h.countFailed("malformed")
			h.logger.Error().Err(err).Str("payment_id", event.PaymentID).Msg("webhook event unprocessable")
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "unprocessable event"})
		}

		// Transient: let the processor retry.
		h.countFailed("internal")
		h.logger.Error().Err(err).Str("payment_id", event.PaymentID).Msg("webhook processing failed")
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "processing failed"})
	}

	if h.metrics != nil {
		h.metrics.WebhookProcessed.WithLabelValues(event.EventType).Inc()
	}
	h.logger.Info().
		Str("payment_id", event.PaymentID).
		Str("order_number", order.OrderNumber).
		Dur("took", time.Since(start)).
		Msg("webhook processed")

	return c.JSON(http.StatusOK, map[string]any{"received": true})
}

func (h *RazorpayHandler) countRejected(reason string) {
	if h.metrics != nil {
		h.metrics.WebhookRejected.WithLabelValues(reason).Inc()
	}
}

func (h *RazorpayHandler) countFailed(reason string) {
	if h.metrics != nil {
		h.metrics.WebhookFailed.WithLabelValues(reason).Inc()
	}
}
