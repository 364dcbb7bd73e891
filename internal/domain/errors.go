package domain

// Storage-level sentinels shared between stores and services.
var (
	// ErrOrderNotFound indicates no order exists for the given identifier.
	ErrOrderNotFound = Errorf(ENOTFOUND, "", "Order not found")

	// ErrPaymentAlreadyProcessed indicates an order already exists for the
	// payment id. This is the uniqueness constraint doing its job against a
	// duplicate webhook delivery; callers treat it as a no-op success.
	ErrPaymentAlreadyProcessed = Errorf(ECONFLICT, "", "Payment already processed")

	// ErrOrderNumberCollision indicates the generated order number was
	// already taken. Retryable: regenerate and insert again.
	ErrOrderNumberCollision = Errorf(ECONFLICT, "", "Order number already in use")

	// ErrInsufficientStock indicates a conditional stock decrement could not
	// be satisfied for at least one product. No decrement was applied.
	ErrInsufficientStock = Errorf(ECONFLICT, "", "Insufficient stock for one or more items")

	// ErrOrderStatusConflict indicates a conditional status transition did
	// not apply because the order was not in the expected status. For retry
	// claims this means another runner holds the order.
	ErrOrderStatusConflict = Errorf(ECONFLICT, "", "Order is not in the expected status")
)
