// Package jobs contains background workers that repair pipeline state.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/kiranalabs/kirana/internal/domain"
	"github.com/kiranalabs/kirana/internal/events"
	"github.com/kiranalabs/kirana/internal/service"
)

// DefaultSweepInterval is how often the worker re-scans storage for orders
// stuck in stock_pending, independent of message delivery.
const DefaultSweepInterval = 5 * time.Minute

// sweepBatchSize bounds one sweep pass. Leftovers are picked up next tick.
const sweepBatchSize = 100

// claimTimeout is how long a stock_retrying claim may stand before the sweep
// presumes its runner died and releases it. Live retries finish in
// milliseconds; only a crash mid-retry leaves a claim this old.
const claimTimeout = 2 * time.Minute

// StockRetryWorker drives stock decrements back to completion after a
// two-phase materialization committed the order but failed the decrement.
//
// It consumes retry messages for fast recovery and additionally sweeps
// storage on an interval, so a lost message cannot strand an order.
type StockRetryWorker struct {
	orders        service.OrderService
	store         domain.OrderStore
	logger        zerolog.Logger
	sweepInterval time.Duration

	sub *nats.Subscription
}

// NewStockRetryWorker creates a stock retry worker. A sweepInterval of zero
// selects DefaultSweepInterval.
func NewStockRetryWorker(orders service.OrderService, store domain.OrderStore, logger zerolog.Logger, sweepInterval time.Duration) *StockRetryWorker {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &StockRetryWorker{
		orders:        orders,
		store:         store,
		logger:        logger.With().Str("component", "stock_retry").Logger(),
		sweepInterval: sweepInterval,
	}
}

// Subscribe attaches the worker to the retry subject. Safe to skip when
// running without a message broker; the sweep alone still converges.
func (w *StockRetryWorker) Subscribe(nc *nats.Conn) error {
	sub, err := nc.Subscribe(events.SubjectStockRetry, func(msg *nats.Msg) {
		var retry events.StockRetryMessage
		if err := json.Unmarshal(msg.Data, &retry); err != nil {
			w.logger.Warn().Err(err).Msg("discarding malformed retry message")
			return
		}
		w.retry(context.Background(), retry.PaymentID)
	})
	if err != nil {
		return err
	}
	w.sub = sub
	return nil
}

// Run sweeps stock_pending orders until the context is canceled.
func (w *StockRetryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Close drains the subscription, letting in-flight handlers finish.
func (w *StockRetryWorker) Close() error {
	if w.sub == nil {
		return nil
	}
	return w.sub.Drain()
}

func (w *StockRetryWorker) sweep(ctx context.Context) {
	w.recoverStaleClaims(ctx)

	pending, err := w.store.ListByStatus(ctx, domain.OrderStatusStockPending, sweepBatchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("sweep failed to list pending orders")
		return
	}
	if len(pending) == 0 {
		return
	}

	w.logger.Info().Int("count", len(pending)).Msg("sweeping stock_pending orders")
	for _, order := range pending {
		w.retry(ctx, order.PaymentID)
	}
}

// recoverStaleClaims releases stock_retrying claims whose runner died before
// finishing. A released order is plain stock_pending again and gets retried by
// this same sweep pass.
func (w *StockRetryWorker) recoverStaleClaims(ctx context.Context) {
	claimed, err := w.store.ListByStatus(ctx, domain.OrderStatusStockRetrying, sweepBatchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("sweep failed to list claimed orders")
		return
	}

	for _, order := range claimed {
		if time.Since(order.UpdatedAt) < claimTimeout {
			continue
		}
		err := w.store.TransitionStatus(ctx, order.PaymentID, domain.OrderStatusStockRetrying, domain.OrderStatusStockPending)
		if err != nil {
			// A conflict means the runner finished after all.
			if errors.Is(err, domain.ErrOrderStatusConflict) {
				continue
			}
			w.logger.Error().Err(err).Str("payment_id", order.PaymentID).Msg("failed to release stale stock retry claim")
			continue
		}
		w.logger.Warn().Str("payment_id", order.PaymentID).Msg("released stale stock retry claim")
	}
}

func (w *StockRetryWorker) retry(ctx context.Context, paymentID string) {
	err := w.orders.RetryStockDecrement(ctx, paymentID)
	if err == nil {
		w.logger.Info().Str("payment_id", paymentID).Msg("stock decrement recovered")
		return
	}

	// Still out of stock means the shortage persists; retried on the
	// next sweep rather than logged as a fault.
	if errors.Is(err, domain.ErrInsufficientStock) {
		w.logger.Warn().Str("payment_id", paymentID).Msg("stock still insufficient, will retry")
		return
	}
	if errors.Is(err, domain.ErrOrderNotFound) {
		w.logger.Warn().Str("payment_id", paymentID).Msg("retry message for unknown payment")
		return
	}

	w.logger.Error().Err(err).Str("payment_id", paymentID).Msg("stock retry failed")
}
