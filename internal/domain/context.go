// Package domain provides core business types and context helpers for the
// payment-confirmation and order-fulfillment pipeline.
//
// Context helpers centralize request-scoped data access: buyer identity is
// attached once by middleware and read explicitly by services, so no
// process-wide state survives a request boundary.
package domain

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// buyerContextKey stores buyer identity in context.
	buyerContextKey contextKey = iota
)

// Buyer is the authenticated caller of checkout operations. Identity is
// established by an upstream provider; this core only consumes it.
type Buyer struct {
	ID    string
	Email string
	Name  string
}

// NewContextWithBuyer returns a new context with the buyer attached.
func NewContextWithBuyer(ctx context.Context, buyer *Buyer) context.Context {
	return context.WithValue(ctx, buyerContextKey, buyer)
}

// BuyerFromContext retrieves the buyer from context.
// Returns nil if no buyer is present (anonymous request).
func BuyerFromContext(ctx context.Context) *Buyer {
	buyer, _ := ctx.Value(buyerContextKey).(*Buyer)
	return buyer
}
