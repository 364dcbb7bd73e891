package payment

import (
	"context"
	"fmt"
)

// MockProvider is a mock payment provider for testing.
// Simulates successful session creation without calling the processor.
type MockProvider struct {
	// CreateOrderFunc allows customizing session creation behavior
	CreateOrderFunc func(ctx context.Context, params CreateOrderParams) (*CheckoutSession, error)

	// VerifyWebhookSignatureFunc allows customizing webhook verification behavior
	VerifyWebhookSignatureFunc func(payload []byte, signature string) error

	// VerifyPaymentSignatureFunc allows customizing callback verification behavior
	VerifyPaymentSignatureFunc func(orderID, paymentID, signature string) error

	// Sessions stores created sessions for retrieval
	Sessions map[string]*CheckoutSession

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new mock payment provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Sessions: make(map[string]*CheckoutSession),
		CallLog:  []string{},
	}
}

// CreateOrder creates a mock checkout session.
func (m *MockProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*CheckoutSession, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateOrder(%d, %s)", params.AmountMinor, params.Currency))

	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, params)
	}

	session := &CheckoutSession{
		SessionID:   fmt.Sprintf("order_mock_%d", len(m.Sessions)+1),
		AmountMinor: params.AmountMinor,
		Currency:    params.Currency,
		Notes:       params.Notes,
	}

	m.Sessions[session.SessionID] = session
	return session, nil
}

// VerifyWebhookSignature verifies a mock webhook signature.
func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	m.CallLog = append(m.CallLog, "VerifyWebhookSignature")

	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature)
	}
	return nil
}

// VerifyPaymentSignature verifies a mock payment callback signature.
func (m *MockProvider) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	m.CallLog = append(m.CallLog, fmt.Sprintf("VerifyPaymentSignature(%s, %s)", orderID, paymentID))

	if m.VerifyPaymentSignatureFunc != nil {
		return m.VerifyPaymentSignatureFunc(orderID, paymentID, signature)
	}
	return nil
}
