package service

import (
	"context"
	"errors"
	"time"

	"github.com/kiranalabs/kirana/internal/domain"
)

// Confirmation poller defaults. The expected wait is seconds (one webhook
// round trip), so a fixed delay with a hard cap is enough; no backoff.
const (
	DefaultPollInterval = 1 * time.Second
	DefaultPollAttempts = 5
)

// ConfirmationPoller lets the buyer's session discover the materialized order
// once the asynchronous webhook has been processed. Strictly a reader: it
// never creates anything.
type ConfirmationPoller struct {
	orders      domain.OrderStore
	interval    time.Duration
	maxAttempts int
}

// NewConfirmationPoller creates a poller with the given bounds.
// Zero values fall back to the defaults.
func NewConfirmationPoller(orders domain.OrderStore, interval time.Duration, maxAttempts int) *ConfirmationPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollAttempts
	}

	return &ConfirmationPoller{
		orders:      orders,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// AwaitOrder polls for the order on a fixed interval, bounded by the attempt
// cap. Returns ErrStillProcessing when attempts are exhausted without the
// order appearing; that is a terminal "check back later", not a failure.
func (p *ConfirmationPoller) AwaitOrder(ctx context.Context, paymentID string) (*domain.Order, error) {
	if paymentID == "" {
		return nil, domain.Invalid("confirmation.await", "payment id is required")
	}

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		order, err := p.orders.FindByPaymentID(ctx, paymentID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, domain.ErrOrderNotFound) {
			return nil, err
		}

		// Not there yet; wait out the interval unless this was the last try.
		if attempt == p.maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.interval):
		}
	}

	return nil, ErrStillProcessing
}
