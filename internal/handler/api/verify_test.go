package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranalabs/kirana/internal/payment"
)

func Test_VerifyPayment_Valid(t *testing.T) {
	provider := payment.NewMockProvider()
	h := NewVerifyHandler(provider)

	c, rec := newTestContext(t, http.MethodPost, "/api/payments/verify",
		`{"razorpay_order_id": "order_abc", "razorpay_payment_id": "pay_xyz", "razorpay_signature": "deadbeef"}`)
	require.NoError(t, h.VerifyPayment(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "pay_xyz", body["paymentId"])
}

func Test_VerifyPayment_InvalidSignature(t *testing.T) {
	provider := payment.NewMockProvider()
	provider.VerifyPaymentSignatureFunc = func(orderID, paymentID, signature string) error {
		return payment.ErrInvalidSignature
	}
	h := NewVerifyHandler(provider)

	c, rec := newTestContext(t, http.MethodPost, "/api/payments/verify",
		`{"razorpay_order_id": "order_abc", "razorpay_payment_id": "pay_xyz", "razorpay_signature": "forged"}`)
	require.NoError(t, h.VerifyPayment(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

func Test_VerifyPayment_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: `{}`},
		{name: "missing signature", body: `{"razorpay_order_id": "order_abc", "razorpay_payment_id": "pay_xyz"}`},
		{name: "missing payment id", body: `{"razorpay_order_id": "order_abc", "razorpay_signature": "sig"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			provider := payment.NewMockProvider()
			provider.VerifyPaymentSignatureFunc = func(orderID, paymentID, signature string) error {
				called = true
				return nil
			}
			h := NewVerifyHandler(provider)

			c, rec := newTestContext(t, http.MethodPost, "/api/payments/verify", tt.body)
			require.NoError(t, h.VerifyPayment(c))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, called)
		})
	}
}
