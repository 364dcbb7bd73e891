package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranalabs/kirana/internal/domain"
	"github.com/kiranalabs/kirana/internal/service"
)

func Test_GetByPaymentID(t *testing.T) {
	orders := &mockOrderService{
		FindFunc: func(ctx context.Context, paymentID string) (*domain.Order, error) {
			if paymentID == "pay_1" {
				return &domain.Order{
					OrderNumber: "ORD-1",
					PaymentID:   "pay_1",
					Status:      domain.OrderStatusPaid,
					TotalMinor:  20000,
					Currency:    "INR",
					Items: []domain.OrderItem{
						{ProductID: "p1", ProductName: "Masala Chai", Quantity: 2, PriceAtPurchase: 10000},
					},
				}, nil
			}
			return nil, domain.ErrOrderNotFound
		},
	}
	h := NewOrderHandler(orders, service.NewConfirmationPoller(&mockOrderStore{}, time.Millisecond, 1))

	t.Run("found", func(t *testing.T) {
		c, rec := newTestContext(t, http.MethodGet, "/api/orders/by-payment/pay_1", "")
		c.SetParamNames("paymentID")
		c.SetParamValues("pay_1")
		require.NoError(t, h.GetByPaymentID(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		order := body["order"].(map[string]any)
		assert.Equal(t, "ORD-1", order["orderNumber"])

		// Money fields serialize in minor units under the *Minor keys; a
		// rupee amount of 200.00 crosses the wire as 20000.
		assert.Equal(t, float64(20000), order["totalMinor"])
		items := order["items"].([]any)
		require.Len(t, items, 1)
		assert.Equal(t, float64(10000), items[0].(map[string]any)["priceAtPurchase"])
	})

	t.Run("not found", func(t *testing.T) {
		c, rec := newTestContext(t, http.MethodGet, "/api/orders/by-payment/pay_missing", "")
		c.SetParamNames("paymentID")
		c.SetParamValues("pay_missing")
		require.NoError(t, h.GetByPaymentID(c))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_AwaitConfirmation(t *testing.T) {
	t.Run("order appears", func(t *testing.T) {
		store := &mockOrderStore{
			FindByPaymentIDFunc: func(ctx context.Context, paymentID string) (*domain.Order, error) {
				return &domain.Order{OrderNumber: "ORD-1", PaymentID: paymentID}, nil
			},
		}
		h := NewOrderHandler(&mockOrderService{}, service.NewConfirmationPoller(store, time.Millisecond, 3))

		c, rec := newTestContext(t, http.MethodGet, "/api/orders/confirmation?payment_id=pay_1", "")
		require.NoError(t, h.AwaitConfirmation(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
	})

	t.Run("still processing after attempts exhausted", func(t *testing.T) {
		attempts := 0
		store := &mockOrderStore{
			FindByPaymentIDFunc: func(ctx context.Context, paymentID string) (*domain.Order, error) {
				attempts++
				return nil, domain.ErrOrderNotFound
			},
		}
		h := NewOrderHandler(&mockOrderService{}, service.NewConfirmationPoller(store, time.Millisecond, 3))

		c, rec := newTestContext(t, http.MethodGet, "/api/orders/confirmation?payment_id=pay_1", "")
		require.NoError(t, h.AwaitConfirmation(c))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, 3, attempts)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "processing", body["status"])
	})

	t.Run("missing payment id", func(t *testing.T) {
		h := NewOrderHandler(&mockOrderService{}, service.NewConfirmationPoller(&mockOrderStore{}, time.Millisecond, 3))

		c, rec := newTestContext(t, http.MethodGet, "/api/orders/confirmation", "")
		require.NoError(t, h.AwaitConfirmation(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
