// Package events carries operator-facing pipeline events over NATS.
//
// The only producer today is the order materializer: when an order is durable
// but its stock decrement failed, a retry message is published for the
// compensation job. Publishing is best-effort; a publish failure must never
// turn a successful order into a webhook error.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// SubjectStockRetry carries StockRetryMessage payloads.
const SubjectStockRetry = "orders.stock.retry"

// StockRetryMessage asks the compensation job to re-apply an order's stock
// decrement. The order itself stays in status stock_pending until it succeeds.
type StockRetryMessage struct {
	PaymentID string `json:"paymentId"`
}

// Publisher publishes pipeline events.
type Publisher interface {
	PublishStockRetry(ctx context.Context, msg StockRetryMessage) error
}

// NATSPublisher implements Publisher on a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// Compile-time check that NATSPublisher implements Publisher.
var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher creates a publisher on an established connection.
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// PublishStockRetry publishes a stock retry request.
func (p *NATSPublisher) PublishStockRetry(ctx context.Context, msg StockRetryMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal stock retry message: %w", err)
	}

	if err := p.conn.Publish(SubjectStockRetry, data); err != nil {
		return fmt.Errorf("publish %s: %w", SubjectStockRetry, err)
	}
	return nil
}

// MockPublisher records published events for test assertions.
type MockPublisher struct {
	// PublishStockRetryFunc allows customizing publish behavior
	PublishStockRetryFunc func(ctx context.Context, msg StockRetryMessage) error

	// Published stores every message handed to the publisher
	Published []StockRetryMessage
}

// PublishStockRetry records the message.
func (m *MockPublisher) PublishStockRetry(ctx context.Context, msg StockRetryMessage) error {
	m.Published = append(m.Published, msg)

	if m.PublishStockRetryFunc != nil {
		return m.PublishStockRetryFunc(ctx, msg)
	}
	return nil
}
