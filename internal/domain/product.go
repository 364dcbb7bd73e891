package domain

import "context"

// Product is a catalog entry as seen by the fulfillment pipeline.
// The catalog itself is owned elsewhere; this core only reads products and
// decrements their stock.
type Product struct {
	ID    string
	Name  string
	// PriceMinor is the unit price in the smallest currency unit (paise).
	PriceMinor int64
	Stock      int32
}

// CartLine is a single client-supplied cart entry. Untrusted: prices are
// always resolved server-side.
type CartLine struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int32  `json:"quantity" validate:"required,gt=0"`
}

// StockDecrement is one (product, quantity) pair of a batch decrement.
type StockDecrement struct {
	ProductID string
	Quantity  int32
}

// CatalogStore is the read/decrement interface onto the external catalog.
type CatalogStore interface {
	// GetProductsByIDs resolves products in one batched read.
	// Missing ids are simply absent from the result; callers decide whether
	// that is an error.
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]Product, error)

	// DecrementStock applies all decrements or none of them. Each decrement
	// is conditional on stock >= quantity so stock can never go negative.
	// Returns ErrInsufficientStock when any line cannot be satisfied.
	DecrementStock(ctx context.Context, decrements []StockDecrement) error
}
