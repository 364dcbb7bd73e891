package domain

import (
	"context"
	"time"
)

// Order statuses. The pipeline only ever creates orders in StatusPaid and
// moves them to StatusStockPending when the stock decrement fails after the
// order is durable. Further transitions (fulfillment, shipping) are owned by
// other systems.
const (
	OrderStatusPaid = "paid"

	// OrderStatusStockPending marks an order whose stock decrement has not
	// been applied yet. Operator tooling and the compensation job query for
	// this status.
	OrderStatusStockPending = "stock_pending"

	// OrderStatusStockRetrying marks an order whose decrement retry is
	// claimed by a runner. The conditional transition into this status is
	// what keeps concurrent retries from decrementing twice; claims that
	// outlive their runner are released back to stock_pending by the sweep.
	OrderStatusStockRetrying = "stock_retrying"
)

// OrderItem is a single order line, with the unit price frozen at the moment
// of materialization. Never recomputed afterwards.
type OrderItem struct {
	ProductID       string `json:"productId"`
	ProductName     string `json:"productName"`
	Quantity        int32  `json:"quantity"`
	PriceAtPurchase int64  `json:"priceAtPurchase"` // minor units
}

// Order is the durable record produced by the materializer.
// At most one order exists per PaymentID; that uniqueness constraint is the
// actual idempotency enforcement point for webhook retries.
type Order struct {
	OrderNumber      string      `json:"orderNumber"`
	BuyerID          string      `json:"buyerId"`
	Email            string      `json:"email"`
	Items            []OrderItem `json:"items"`
	// TotalMinor is the captured amount in the smallest currency unit
	// (paise for INR). Serialized as totalMinor; API clients divide by 100
	// for display, the server never deals in fractional rupees.
	TotalMinor       int64       `json:"totalMinor"`
	Currency         string      `json:"currency"`
	Status           string      `json:"status"`
	PaymentID        string      `json:"paymentId"`
	PaymentReference string      `json:"paymentReference"` // processor-side order/session id
	AddressName      string      `json:"addressName"`
	AddressCountry   string      `json:"addressCountry"`
	CreatedAt        time.Time   `json:"createdAt"`
	// UpdatedAt advances on every status transition. The compensation sweep
	// uses it to age out retry claims whose runner died.
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// OrderStore persists orders with a uniqueness constraint on PaymentID.
type OrderStore interface {
	// Insert stores a new order. A second insert with the same PaymentID
	// returns ErrPaymentAlreadyProcessed, which callers treat as a
	// duplicate-delivery no-op.
	Insert(ctx context.Context, order *Order) error

	// FindByPaymentID returns the order for a payment, or ErrOrderNotFound.
	FindByPaymentID(ctx context.Context, paymentID string) (*Order, error)

	// UpdateStatus transitions an order between pipeline statuses
	// unconditionally.
	UpdateStatus(ctx context.Context, paymentID, status string) error

	// TransitionStatus moves an order from one status to another in a
	// single conditional update, applying it only when the order is
	// currently in the expected status. Returns ErrOrderStatusConflict
	// otherwise. This is the mutual exclusion primitive for retry claims.
	TransitionStatus(ctx context.Context, paymentID, from, to string) error

	// ListByStatus returns orders in the given status, oldest first.
	// Used by the stock compensation job.
	ListByStatus(ctx context.Context, status string, limit int32) ([]*Order, error)
}
