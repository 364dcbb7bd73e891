package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kiranalabs/kirana/internal/domain"
	"github.com/kiranalabs/kirana/internal/payment"
	"github.com/kiranalabs/kirana/internal/telemetry"
)

// Currency is the settlement currency for all checkout sessions.
// Multi-currency settlement is out of scope.
const Currency = "INR"

// CheckoutService builds checkout sessions against the payment processor.
type CheckoutService interface {
	// CreateSession validates the cart against live stock and price, computes
	// the total from server-authoritative prices, and opens a processor-side
	// session carrying the order intent in its metadata.
	//
	// Never retries internally: the caller decides whether to retry with a
	// fresh cart snapshot. Opens no session on any validation failure.
	CreateSession(ctx context.Context, lines []domain.CartLine) (*payment.CheckoutSession, error)
}

type checkoutService struct {
	catalog  domain.CatalogStore
	provider payment.Provider
	metrics  *telemetry.BusinessMetrics
	logger   zerolog.Logger
}

// NewCheckoutService creates a new CheckoutService instance.
func NewCheckoutService(catalog domain.CatalogStore, provider payment.Provider, metrics *telemetry.BusinessMetrics, logger zerolog.Logger) CheckoutService {
	return &checkoutService{
		catalog:  catalog,
		provider: provider,
		metrics:  metrics,
		logger:   logger.With().Str("component", "checkout").Logger(),
	}
}

// CreateSession implements CheckoutService.
func (s *checkoutService) CreateSession(ctx context.Context, lines []domain.CartLine) (*payment.CheckoutSession, error) {
	buyer := domain.BuyerFromContext(ctx)
	if buyer == nil || buyer.ID == "" {
		s.countFailure("unauthenticated")
		return nil, ErrUnauthenticated
	}

	if len(lines) == 0 {
		s.countFailure("empty_cart")
		return nil, ErrEmptyCart
	}

	// One batched read for every distinct product id.
	ids := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}

	products, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		s.countFailure("catalog_error")
		return nil, err
	}

	// Validate every line and total server-side. Client-supplied prices, if
	// any, never reach this point.
	var totalMinor int64
	metaLines := make([]payment.MetadataLine, len(lines))
	for i, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			s.countFailure("product_unavailable")
			return nil, ProductUnavailable(line.ProductID)
		}

		// Advisory only; the capture-time decrement is the real gate.
		if product.Stock < line.Quantity {
			s.countFailure("insufficient_stock")
			return nil, InsufficientStock(line.ProductID, product.Stock)
		}

		totalMinor += product.PriceMinor * int64(line.Quantity)
		metaLines[i] = payment.MetadataLine{
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			UnitPriceMinor: product.PriceMinor,
		}
	}

	notes, err := payment.Metadata{
		BuyerID:     buyer.ID,
		Email:       buyer.Email,
		DisplayName: buyer.Name,
		Lines:       metaLines,
	}.Encode()
	if err != nil {
		s.countFailure("metadata_encode")
		return nil, domain.Internal(err, "checkout.create_session", "failed to encode order metadata")
	}

	session, err := s.provider.CreateOrder(ctx, payment.CreateOrderParams{
		AmountMinor: totalMinor,
		Currency:    Currency,
		Receipt:     fmt.Sprintf("order_%d", time.Now().UnixMilli()),
		Notes:       notes,
	})
	if err != nil {
		s.countFailure("provider_error")
		s.logger.Error().Err(err).Int64("amount_minor", totalMinor).Msg("failed to open checkout session")
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CheckoutSessions.WithLabelValues(session.Currency).Inc()
	}
	s.logger.Info().
		Str("session_id", session.SessionID).
		Str("buyer_id", buyer.ID).
		Int64("amount_minor", session.AmountMinor).
		Int("lines", len(lines)).
		Msg("checkout session opened")

	return session, nil
}

func (s *checkoutService) countFailure(reason string) {
	if s.metrics != nil {
		s.metrics.CheckoutSessionsFailed.WithLabelValues(reason).Inc()
	}
}
