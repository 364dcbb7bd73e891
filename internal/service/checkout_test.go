package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranalabs/kirana/internal/domain"
	"github.com/kiranalabs/kirana/internal/payment"
)

func buyerContext(id string) context.Context {
	return domain.NewContextWithBuyer(context.Background(), &domain.Buyer{
		ID:    id,
		Email: id + "@example.com",
		Name:  "Test Buyer",
	})
}

func newTestCheckout(catalog domain.CatalogStore, provider payment.Provider) CheckoutService {
	return NewCheckoutService(catalog, provider, nil, zerolog.Nop())
}

func Test_CreateSession_TotalsFromCatalogPrices(t *testing.T) {
	// Two units of a 100-rupee product: the session must carry 20000 paise
	// regardless of anything the client claims.
	catalog := newMockCatalog(
		domain.Product{ID: "p1", Name: "Masala Chai", PriceMinor: 10000, Stock: 5},
	)
	provider := payment.NewMockProvider()
	svc := newTestCheckout(catalog, provider)

	session, err := svc.CreateSession(buyerContext("buyer_1"), []domain.CartLine{
		{ProductID: "p1", Quantity: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(20000), session.AmountMinor)
	assert.Equal(t, "INR", session.Currency)
	assert.NotEmpty(t, session.SessionID)

	// Stock is untouched at session time; only capture decrements.
	assert.Equal(t, int32(5), catalog.Products["p1"].Stock)
}

func Test_CreateSession_MetadataCarriesOrderIntent(t *testing.T) {
	catalog := newMockCatalog(
		domain.Product{ID: "p1", Name: "Masala Chai", PriceMinor: 10000, Stock: 5},
		domain.Product{ID: "p2", Name: "Filter Coffee", PriceMinor: 25000, Stock: 3},
	)
	provider := payment.NewMockProvider()
	svc := newTestCheckout(catalog, provider)

	session, err := svc.CreateSession(buyerContext("buyer_1"), []domain.CartLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(45000), session.AmountMinor)

	meta, err := payment.DecodeMetadata(session.Notes)
	require.NoError(t, err)
	assert.Equal(t, "buyer_1", meta.BuyerID)
	require.Len(t, meta.Lines, 2)
	assert.Equal(t, payment.MetadataLine{ProductID: "p1", Quantity: 2, UnitPriceMinor: 10000}, meta.Lines[0])
	assert.Equal(t, payment.MetadataLine{ProductID: "p2", Quantity: 1, UnitPriceMinor: 25000}, meta.Lines[1])
}

func Test_CreateSession_ValidationFailures(t *testing.T) {
	catalog := newMockCatalog(
		domain.Product{ID: "p1", Name: "Masala Chai", PriceMinor: 10000, Stock: 1},
	)

	tests := []struct {
		name     string
		ctx      context.Context
		lines    []domain.CartLine
		wantCode string
	}{
		{
			name:     "unauthenticated",
			ctx:      context.Background(),
			lines:    []domain.CartLine{{ProductID: "p1", Quantity: 1}},
			wantCode: domain.EUNAUTHORIZED,
		},
		{
			name:     "empty cart",
			ctx:      buyerContext("buyer_1"),
			lines:    nil,
			wantCode: domain.EINVALID,
		},
		{
			name:     "unknown product",
			ctx:      buyerContext("buyer_1"),
			lines:    []domain.CartLine{{ProductID: "ghost", Quantity: 1}},
			wantCode: domain.ENOTFOUND,
		},
		{
			name:     "insufficient stock",
			ctx:      buyerContext("buyer_1"),
			lines:    []domain.CartLine{{ProductID: "p1", Quantity: 2}},
			wantCode: domain.ECONFLICT,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := payment.NewMockProvider()
			svc := newTestCheckout(catalog, provider)

			session, err := svc.CreateSession(tt.ctx, tt.lines)
			require.Error(t, err)
			assert.Nil(t, session)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))

			// No session may be opened on any validation failure.
			assert.Empty(t, provider.CallLog)
		})
	}
}

func Test_CreateSession_ProviderErrorPassesThrough(t *testing.T) {
	catalog := newMockCatalog(
		domain.Product{ID: "p1", Name: "Masala Chai", PriceMinor: 10000, Stock: 5},
	)
	provider := payment.NewMockProvider()
	provider.CreateOrderFunc = func(ctx context.Context, params payment.CreateOrderParams) (*payment.CheckoutSession, error) {
		return nil, domain.Errorf(domain.EPAYMENT, "payment.create_order", "Failed to open checkout session")
	}
	svc := newTestCheckout(catalog, provider)

	_, err := svc.CreateSession(buyerContext("buyer_1"), []domain.CartLine{{ProductID: "p1", Quantity: 1}})
	require.Error(t, err)
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
}

func Test_CreateSession_DuplicateLinesShareOneRead(t *testing.T) {
	// The same product appearing on two lines is resolved once but totaled
	// per line.
	catalog := newMockCatalog(
		domain.Product{ID: "p1", Name: "Masala Chai", PriceMinor: 10000, Stock: 10},
	)
	var gotIDs []string
	catalog.GetProductsByIDsFunc = func(ctx context.Context, ids []string) (map[string]domain.Product, error) {
		gotIDs = ids
		return map[string]domain.Product{
			"p1": {ID: "p1", Name: "Masala Chai", PriceMinor: 10000, Stock: 10},
		}, nil
	}
	svc := newTestCheckout(catalog, payment.NewMockProvider())

	session, err := svc.CreateSession(buyerContext("buyer_1"), []domain.CartLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p1", Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, gotIDs)
	assert.Equal(t, int64(50000), session.AmountMinor)
}

func Test_CreateSession_CatalogErrorPassesThrough(t *testing.T) {
	catalog := newMockCatalog()
	catalog.GetProductsByIDsFunc = func(ctx context.Context, ids []string) (map[string]domain.Product, error) {
		return nil, errors.New("connection refused")
	}
	svc := newTestCheckout(catalog, payment.NewMockProvider())

	_, err := svc.CreateSession(buyerContext("buyer_1"), []domain.CartLine{{ProductID: "p1", Quantity: 1}})
	require.Error(t, err)
}

func Test_CreateSession_NotesAreValidJSON(t *testing.T) {
	catalog := newMockCatalog(
		domain.Product{ID: "p1", Name: "Masala Chai", PriceMinor: 10000, Stock: 5},
	)
	svc := newTestCheckout(catalog, payment.NewMockProvider())

	session, err := svc.CreateSession(buyerContext("buyer_1"), []domain.CartLine{{ProductID: "p1", Quantity: 1}})
	require.NoError(t, err)

	raw, ok := session.Notes["order_v2"]
	require.True(t, ok, "notes must carry the structured envelope")
	assert.True(t, json.Valid([]byte(raw)))
}
