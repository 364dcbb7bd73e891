package service

import (
	"context"
	"sync"

	"github.com/kiranalabs/kirana/internal/domain"
)

// mockCatalogStore implements domain.CatalogStore with func fields and an
// in-memory default backed by Products.
type mockCatalogStore struct {
	GetProductsByIDsFunc func(ctx context.Context, ids []string) (map[string]domain.Product, error)
	DecrementStockFunc   func(ctx context.Context, decrements []domain.StockDecrement) error

	mu       sync.Mutex
	Products map[string]domain.Product
}

func newMockCatalog(products ...domain.Product) *mockCatalogStore {
	m := &mockCatalogStore{Products: make(map[string]domain.Product)}
	for _, p := range products {
		m.Products[p.ID] = p
	}
	return m
}

func (m *mockCatalogStore) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if m.GetProductsByIDsFunc != nil {
		return m.GetProductsByIDsFunc(ctx, ids)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.Products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *mockCatalogStore) DecrementStock(ctx context.Context, decrements []domain.StockDecrement) error {
	if m.DecrementStockFunc != nil {
		return m.DecrementStockFunc(ctx, decrements)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range decrements {
		p, ok := m.Products[d.ProductID]
		if !ok || p.Stock < d.Quantity {
			return domain.ErrInsufficientStock
		}
	}
	for _, d := range decrements {
		p := m.Products[d.ProductID]
		p.Stock -= d.Quantity
		m.Products[d.ProductID] = p
	}
	return nil
}

// mockOrderStore implements domain.OrderStore with func fields and an
// in-memory default keyed by payment id, enforcing the same uniqueness the
// real store does.
type mockOrderStore struct {
	InsertFunc           func(ctx context.Context, order *domain.Order) error
	FindByPaymentIDFunc  func(ctx context.Context, paymentID string) (*domain.Order, error)
	UpdateStatusFunc     func(ctx context.Context, paymentID, status string) error
	TransitionStatusFunc func(ctx context.Context, paymentID, from, to string) error
	ListByStatusFunc     func(ctx context.Context, status string, limit int32) ([]*domain.Order, error)

	mu     sync.Mutex
	Orders map[string]*domain.Order
}

func newMockOrders() *mockOrderStore {
	return &mockOrderStore{Orders: make(map[string]*domain.Order)}
}

func (m *mockOrderStore) Insert(ctx context.Context, order *domain.Order) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, order)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Orders[order.PaymentID]; exists {
		return domain.ErrPaymentAlreadyProcessed
	}
	for _, existing := range m.Orders {
		if existing.OrderNumber == order.OrderNumber {
			return domain.ErrOrderNumberCollision
		}
	}
	clone := *order
	m.Orders[order.PaymentID] = &clone
	return nil
}

func (m *mockOrderStore) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	if m.FindByPaymentIDFunc != nil {
		return m.FindByPaymentIDFunc(ctx, paymentID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.Orders[paymentID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	clone := *order
	return &clone, nil
}

func (m *mockOrderStore) UpdateStatus(ctx context.Context, paymentID, status string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, paymentID, status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.Orders[paymentID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = status
	return nil
}

func (m *mockOrderStore) TransitionStatus(ctx context.Context, paymentID, from, to string) error {
	if m.TransitionStatusFunc != nil {
		return m.TransitionStatusFunc(ctx, paymentID, from, to)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.Orders[paymentID]
	if !ok || order.Status != from {
		return domain.ErrOrderStatusConflict
	}
	order.Status = to
	return nil
}

func (m *mockOrderStore) ListByStatus(ctx context.Context, status string, limit int32) ([]*domain.Order, error) {
	if m.ListByStatusFunc != nil {
		return m.ListByStatusFunc(ctx, status, limit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, order := range m.Orders {
		if order.Status == status && int32(len(out)) < limit {
			clone := *order
			out = append(out, &clone)
		}
	}
	return out, nil
}
