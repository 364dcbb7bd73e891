package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kiranalabs/kirana/internal/domain"
	"github.com/kiranalabs/kirana/internal/events"
	"github.com/kiranalabs/kirana/internal/payment"
	"github.com/kiranalabs/kirana/internal/telemetry"
)

// OrderService materializes orders from captured-payment events.
type OrderService interface {
	// MaterializeOrder turns a verified captured-payment event into a durable
	// order plus a stock decrement. Safe under concurrent re-entry with the
	// same payment id: the order store's uniqueness constraint rejects the
	// second insert and the duplicate delivery resolves to the existing
	// order with no further side effects.
	MaterializeOrder(ctx context.Context, event *payment.CapturedEvent) (*domain.Order, error)

	// GetOrderByPaymentID returns the materialized order for a payment.
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)

	// RetryStockDecrement re-applies the stock decrement for an order stuck
	// in stock_pending. Used by the compensation job; a no-op when the order
	// has already been reconciled.
	RetryStockDecrement(ctx context.Context, paymentID string) error
}

type orderService struct {
	orders    domain.OrderStore
	catalog   domain.CatalogStore
	publisher events.Publisher
	metrics   *telemetry.BusinessMetrics
	logger    zerolog.Logger
}

// NewOrderService creates a new OrderService instance.
func NewOrderService(orders domain.OrderStore, catalog domain.CatalogStore, publisher events.Publisher, metrics *telemetry.BusinessMetrics, logger zerolog.Logger) OrderService {
	return &orderService{
		orders:    orders,
		catalog:   catalog,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "order").Logger(),
	}
}

// MaterializeOrder implements OrderService.
//
// Flow:
//  1. Fast-path idempotency check (advisory; see step 4 for enforcement).
//  2. Decode the metadata envelope into order intent.
//  3. Re-resolve products for display names and the legacy price fallback.
//  4. Insert the order; a payment_id unique violation means a concurrent
//     duplicate won the race, which resolves to success-no-op.
//  5. Decrement stock as one atomic batch. Failure here leaves a durable
//     order with stale stock: the order flips to stock_pending, a retry
//     message is published, and the delivery is still acknowledged because
//     re-running the handler is unsafe once the order exists.
func (s *orderService) MaterializeOrder(ctx context.Context, event *payment.CapturedEvent) (*domain.Order, error) {
	if event.EventType != payment.EventPaymentCaptured {
		return nil, domain.Errorf(domain.EINVALID, "order.materialize", "unexpected event type: %s", event.EventType)
	}
	if event.PaymentID == "" {
		return nil, domain.Errorf(domain.EINVALID, "order.materialize", "event has no payment id")
	}

	// Fast path: already processed.
	existing, err := s.orders.FindByPaymentID(ctx, event.PaymentID)
	if err == nil {
		s.countDuplicate(event.PaymentID)
		return existing, nil
	}
	if !errors.Is(err, domain.ErrOrderNotFound) {
		return nil, err
	}

	meta, err := payment.DecodeMetadata(event.Notes)
	if err != nil {
		return nil, err
	}

	order, err := s.buildOrder(ctx, event, meta)
	if err != nil {
		return nil, err
	}

	if err := s.insertWithRetry(ctx, order); err != nil {
		if errors.Is(err, domain.ErrPaymentAlreadyProcessed) {
			// Lost the race against a concurrent duplicate delivery.
			s.countDuplicate(event.PaymentID)
			return s.orders.FindByPaymentID(ctx, event.PaymentID)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersCreated.Inc()
		s.metrics.OrderValue.Observe(float64(order.TotalMinor))
		s.metrics.RevenueCollected.Add(float64(order.TotalMinor))
	}

	// Phase 2: stock decrement, atomic across the order's product set.
	if err := s.catalog.DecrementStock(ctx, decrementsFor(order)); err != nil {
		s.handleDecrementFailure(ctx, order, err)
	}

	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Str("payment_id", order.PaymentID).
		Int64("total_minor", order.TotalMinor).
		Str("status", order.Status).
		Msg("order materialized")

	return order, nil
}

// buildOrder constructs the order record from event plus decoded intent.
// Price policy: the unit price embedded at session-creation time wins; the
// current catalog price is only used for legacy metadata that carried none.
func (s *orderService) buildOrder(ctx context.Context, event *payment.CapturedEvent, meta *payment.Metadata) (*domain.Order, error) {
	ids := make([]string, len(meta.Lines))
	for i, line := range meta.Lines {
		ids[i] = line.ProductID
	}

	products, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, len(meta.Lines))
	for i, line := range meta.Lines {
		product, inCatalog := products[line.ProductID]

		// v2 envelopes always embed the unit price (zero is a valid price);
		// v1 metadata never carried one, so only there does the catalog
		// price stand in.
		price := line.UnitPriceMinor
		if meta.Version < 2 {
			if !inCatalog {
				// No embedded price and the product is gone: the order
				// cannot be rebuilt faithfully.
				return nil, payment.ErrMalformedMetadata
			}
			price = product.PriceMinor
		}

		name := product.Name
		if name == "" {
			name = line.ProductID
		}

		items[i] = domain.OrderItem{
			ProductID:       line.ProductID,
			ProductName:     name,
			Quantity:        line.Quantity,
			PriceAtPurchase: price,
		}
	}

	email := meta.Email
	if email == "" {
		email = event.Email
	}

	currency := event.Currency
	if currency == "" {
		currency = Currency
	}

	return &domain.Order{
		OrderNumber:      newOrderNumber(),
		BuyerID:          meta.BuyerID,
		Email:            email,
		Items:            items,
		TotalMinor:       event.AmountMinor,
		Currency:         currency,
		Status:           domain.OrderStatusPaid,
		PaymentID:        event.PaymentID,
		PaymentReference: event.OrderReference,
		AddressName:      meta.DisplayName,
		AddressCountry:   "IN",
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// insertWithRetry regenerates the order number once on collision.
// Collisions are negligible but detectable through the storage constraint.
func (s *orderService) insertWithRetry(ctx context.Context, order *domain.Order) error {
	err := s.orders.Insert(ctx, order)
	if errors.Is(err, domain.ErrOrderNumberCollision) {
		s.logger.Warn().Str("order_number", order.OrderNumber).Msg("order number collision, regenerating")
		order.OrderNumber = newOrderNumber()
		err = s.orders.Insert(ctx, order)
	}
	return err
}

// handleDecrementFailure records the partial-failure state: order durable,
// stock stale. Fatal for operator alerting, compensated out-of-band.
func (s *orderService) handleDecrementFailure(ctx context.Context, order *domain.Order, cause error) {
	order.Status = domain.OrderStatusStockPending

	if s.metrics != nil {
		s.metrics.StockDecrementFailed.Inc()
	}
	s.logger.Error().
		Err(cause).
		Str("order_number", order.OrderNumber).
		Str("payment_id", order.PaymentID).
		Msg("FATAL: order persisted but stock decrement failed; queued for compensation")

	if err := s.orders.UpdateStatus(ctx, order.PaymentID, domain.OrderStatusStockPending); err != nil {
		s.logger.Error().Err(err).Str("payment_id", order.PaymentID).Msg("failed to mark order stock_pending")
	}

	if s.publisher != nil {
		if err := s.publisher.PublishStockRetry(ctx, events.StockRetryMessage{PaymentID: order.PaymentID}); err != nil {
			// The compensation job also sweeps by status, so a lost message
			// delays reconciliation rather than losing it.
			s.logger.Error().Err(err).Str("payment_id", order.PaymentID).Msg("failed to publish stock retry")
		}
	}
}

// GetOrderByPaymentID implements OrderService.
func (s *orderService) GetOrderByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	if paymentID == "" {
		return nil, domain.Invalid("order.lookup", "payment id is required")
	}
	return s.orders.FindByPaymentID(ctx, paymentID)
}

// RetryStockDecrement implements OrderService.
//
// The retry runs single-flight per order: the conditional transition into
// stock_retrying is the claim, and a runner that loses it treats the order as
// already handled. Without the claim, the message handler and the sweep can
// both pass the status check and decrement twice for one order.
func (s *orderService) RetryStockDecrement(ctx context.Context, paymentID string) error {
	order, err := s.orders.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusStockPending {
		return nil
	}

	if err := s.orders.TransitionStatus(ctx, paymentID, domain.OrderStatusStockPending, domain.OrderStatusStockRetrying); err != nil {
		if errors.Is(err, domain.ErrOrderStatusConflict) {
			// Another runner claimed the order between the read and here.
			return nil
		}
		return err
	}

	if err := s.catalog.DecrementStock(ctx, decrementsFor(order)); err != nil {
		if s.metrics != nil {
			s.metrics.StockRetryFailed.Inc()
		}
		// Release the claim so the next sweep tries again.
		if terr := s.orders.TransitionStatus(ctx, paymentID, domain.OrderStatusStockRetrying, domain.OrderStatusStockPending); terr != nil {
			s.logger.Error().Err(terr).Str("payment_id", paymentID).Msg("failed to release stock retry claim")
		}
		return err
	}

	if err := s.orders.TransitionStatus(ctx, paymentID, domain.OrderStatusStockRetrying, domain.OrderStatusPaid); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.StockRetrySucceeded.Inc()
	}
	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Str("payment_id", paymentID).
		Msg("stock decrement reconciled")

	return nil
}

func (s *orderService) countDuplicate(paymentID string) {
	if s.metrics != nil {
		s.metrics.WebhookDuplicates.Inc()
	}
	s.logger.Info().Str("payment_id", paymentID).Msg("duplicate delivery, order already exists")
}

// decrementsFor aggregates item quantities per product. Items may repeat a
// product id (carts keep duplicate lines as-is), and the batch update targets
// each product row exactly once, so repeated ids must collapse into one
// decrement before reaching storage.
func decrementsFor(order *domain.Order) []domain.StockDecrement {
	index := make(map[string]int, len(order.Items))
	decrements := make([]domain.StockDecrement, 0, len(order.Items))
	for _, item := range order.Items {
		if i, ok := index[item.ProductID]; ok {
			decrements[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(decrements)
		decrements = append(decrements, domain.StockDecrement{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return decrements
}

// orderNumberAlphabet excludes ambiguous characters from the random suffix.
const orderNumberAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// newOrderNumber generates a human-facing order number, sortable by creation
// time: ORD-<base36 millisecond timestamp>-<4 random chars>.
func newOrderNumber() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unrecoverable; fall back to a
		// timestamp-only suffix and let the uniqueness constraint catch any
		// collision.
		return fmt.Sprintf("ORD-%s-%04d", ts, time.Now().Nanosecond()%10000)
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}

	return fmt.Sprintf("ORD-%s-%s", ts, buf)
}
