// Package middleware provides echo middleware for the pipeline server.
package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/kiranalabs/kirana/internal/domain"
	"github.com/kiranalabs/kirana/internal/handler"
	"github.com/kiranalabs/kirana/internal/service"
)

// Identity headers set by the upstream authentication layer. The identity
// provider itself is an external collaborator; this core only consumes the
// identity it has already established.
const (
	HeaderBuyerID    = "X-Buyer-Id"
	HeaderBuyerEmail = "X-Buyer-Email"
	HeaderBuyerName  = "X-Buyer-Name"
)

// BuyerIdentity extracts the authenticated buyer from request headers into
// the request context. Requests without an identity pass through anonymous;
// handlers that require authentication use RequireBuyer.
func BuyerIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(HeaderBuyerID)
			if id != "" {
				buyer := &domain.Buyer{
					ID:    id,
					Email: c.Request().Header.Get(HeaderBuyerEmail),
					Name:  c.Request().Header.Get(HeaderBuyerName),
				}
				ctx := domain.NewContextWithBuyer(c.Request().Context(), buyer)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

// RequireBuyer rejects anonymous requests before they reach the handler.
func RequireBuyer() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if domain.BuyerFromContext(c.Request().Context()) == nil {
				return handler.ErrorResponse(c, service.ErrUnauthenticated)
			}
			return next(c)
		}
	}
}
