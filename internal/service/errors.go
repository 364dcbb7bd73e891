package service

import (
	"github.com/kiranalabs/kirana/internal/domain"
)

// Checkout-time validation errors. Always surfaced directly to the buyer;
// never retried internally.
var (
	ErrEmptyCart       = domain.Errorf(domain.EINVALID, "", "Your cart is empty")
	ErrUnauthenticated = domain.Errorf(domain.EUNAUTHORIZED, "", "Please sign in to checkout")
)

// ErrStillProcessing is the poller's terminal "not yet" state. Not a failure:
// the webhook may simply not have arrived.
var ErrStillProcessing = domain.Errorf(domain.ENOTFOUND, "", "Order is still processing")

// ProductUnavailable reports a cart line whose product cannot be resolved.
// Partial checkout is not allowed, so one bad line fails the whole request.
func ProductUnavailable(productID string) error {
	return domain.Errorf(domain.ENOTFOUND, "checkout.resolve", "Product unavailable: %s", productID)
}

// InsufficientStock reports a cart line exceeding available stock.
// Advisory: time passes between this check and capture, so it prevents the
// common case rather than the race.
func InsufficientStock(productID string, available int32) error {
	return domain.Errorf(domain.ECONFLICT, "checkout.stock", "Only %d of product %s available", available, productID)
}
