package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranalabs/kirana/internal/domain"
)

func Test_BuyerIdentity_ExtractsHeaders(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
	req.Header.Set(HeaderBuyerID, "buyer_1")
	req.Header.Set(HeaderBuyerEmail, "buyer@example.com")
	req.Header.Set(HeaderBuyerName, "Test Buyer")
	rec := httptest.NewRecorder()

	var got *domain.Buyer
	h := BuyerIdentity()(func(c echo.Context) error {
		got = domain.BuyerFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, h(e.NewContext(req, rec)))
	require.NotNil(t, got)
	assert.Equal(t, "buyer_1", got.ID)
	assert.Equal(t, "buyer@example.com", got.Email)
	assert.Equal(t, "Test Buyer", got.Name)
}

func Test_BuyerIdentity_AnonymousPassesThrough(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/orders/confirmation", nil)
	rec := httptest.NewRecorder()

	var got *domain.Buyer
	h := BuyerIdentity()(func(c echo.Context) error {
		got = domain.BuyerFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Nil(t, got)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_RequireBuyer(t *testing.T) {
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	t.Run("anonymous rejected", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
		rec := httptest.NewRecorder()

		require.NoError(t, RequireBuyer()(next)(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("identified passes", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
		req.Header.Set(HeaderBuyerID, "buyer_1")
		rec := httptest.NewRecorder()

		chained := BuyerIdentity()(RequireBuyer()(next))
		require.NoError(t, chained(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
