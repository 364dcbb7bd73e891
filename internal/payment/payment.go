// Package payment abstracts the external payment processor.
//
// The pipeline never persists processor-side state; the checkout session is
// opened here and everything needed to rebuild the order later travels in the
// session's notes (see metadata.go).
package payment

import "context"

// Provider defines the interface for the payment processor.
// The production implementation is Razorpay; tests use MockProvider.
type Provider interface {
	// CreateOrder opens a processor-side order (the checkout session) for
	// the given amount. Notes are round-tripped back on webhook delivery.
	CreateOrder(ctx context.Context, params CreateOrderParams) (*CheckoutSession, error)

	// VerifyWebhookSignature verifies that a webhook payload is authentic.
	// Must be called on the exact raw request body, before any parsing.
	VerifyWebhookSignature(payload []byte, signature string) error

	// VerifyPaymentSignature verifies the signature the processor hands the
	// buyer's browser after payment (orderID|paymentID, HMAC-SHA256 with the
	// API key secret).
	VerifyPaymentSignature(orderID, paymentID, signature string) error
}

// CreateOrderParams contains parameters for opening a checkout session.
type CreateOrderParams struct {
	// AmountMinor is the amount in the smallest currency unit (paise).
	AmountMinor int64

	// Currency code (ISO 4217) - e.g., "INR"
	Currency string

	// Receipt is a merchant-side reference shown in the processor dashboard.
	Receipt string

	// Notes are round-tripped through the processor unmodified. This is the
	// sole channel carrying order intent across the asynchronous boundary.
	Notes map[string]string
}

// CheckoutSession represents a processor-side order awaiting payment.
// Immutable once created; not persisted by this core.
type CheckoutSession struct {
	// SessionID is the processor order id (order_...).
	SessionID string

	// AmountMinor is the amount in the smallest currency unit.
	AmountMinor int64

	// Currency code.
	Currency string

	// Notes as accepted by the processor.
	Notes map[string]string
}

// CapturedEvent is a parsed payment.captured webhook delivery.
// Deliveries are at-least-once: the same PaymentID may arrive many times,
// possibly concurrently.
type CapturedEvent struct {
	// EventType is the processor event name (e.g., "payment.captured").
	EventType string

	// PaymentID is the processor payment id (pay_...). The idempotency key.
	PaymentID string

	// OrderReference is the processor order id the payment belongs to.
	OrderReference string

	// AmountMinor is the captured amount in the smallest currency unit.
	AmountMinor int64

	// Currency code.
	Currency string

	// Email is the payer email the processor captured, if any.
	Email string

	// Notes are the metadata embedded at session creation.
	Notes map[string]string
}
