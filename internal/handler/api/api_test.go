package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/kiranalabs/kirana/internal/domain"
	"github.com/kiranalabs/kirana/internal/handler"
	"github.com/kiranalabs/kirana/internal/payment"
)

// mockCheckoutService implements service.CheckoutService.
type mockCheckoutService struct {
	CreateSessionFunc func(ctx context.Context, lines []domain.CartLine) (*payment.CheckoutSession, error)
}

func (m *mockCheckoutService) CreateSession(ctx context.Context, lines []domain.CartLine) (*payment.CheckoutSession, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, lines)
	}
	return &payment.CheckoutSession{SessionID: "order_mock_1", AmountMinor: 20000, Currency: "INR"}, nil
}

// mockOrderService implements service.OrderService.
type mockOrderService struct {
	FindFunc func(ctx context.Context, paymentID string) (*domain.Order, error)
}

func (m *mockOrderService) MaterializeOrder(ctx context.Context, event *payment.CapturedEvent) (*domain.Order, error) {
	return nil, domain.Errorf(domain.EINTERNAL, "", "not implemented")
}

func (m *mockOrderService) GetOrderByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, paymentID)
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockOrderService) RetryStockDecrement(ctx context.Context, paymentID string) error {
	return nil
}

// mockOrderStore implements domain.OrderStore for the poller.
type mockOrderStore struct {
	FindByPaymentIDFunc func(ctx context.Context, paymentID string) (*domain.Order, error)
}

func (m *mockOrderStore) Insert(ctx context.Context, order *domain.Order) error {
	return domain.Errorf(domain.EINTERNAL, "", "not implemented")
}

func (m *mockOrderStore) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	if m.FindByPaymentIDFunc != nil {
		return m.FindByPaymentIDFunc(ctx, paymentID)
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockOrderStore) UpdateStatus(ctx context.Context, paymentID, status string) error {
	return domain.Errorf(domain.EINTERNAL, "", "not implemented")
}

func (m *mockOrderStore) TransitionStatus(ctx context.Context, paymentID, from, to string) error {
	return domain.Errorf(domain.EINTERNAL, "", "not implemented")
}

func (m *mockOrderStore) ListByStatus(ctx context.Context, status string, limit int32) ([]*domain.Order, error) {
	return nil, nil
}

func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = handler.NewValidator()

	var req = httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
