package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kiranalabs/kirana/internal/domain"
)

// RequestLogger emits one structured log line per request.
//
// Webhook deliveries and checkout calls are both low-volume and high-value,
// so every request is logged; there is no sampling.
func RequestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			level := zerolog.InfoLevel
			if c.Response().Status >= 500 {
				level = zerolog.ErrorLevel
			}

			evt := logger.WithLevel(level).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Str("remote_ip", c.RealIP()).
				Dur("took", time.Since(start))

			if requestID := c.Response().Header().Get(echo.HeaderXRequestID); requestID != "" {
				evt = evt.Str("request_id", requestID)
			}

			if buyer := domain.BuyerFromContext(c.Request().Context()); buyer != nil {
				evt = evt.Str("buyer_id", buyer.ID)
			}

			evt.Msg("request")
			return nil
		}
	}
}
