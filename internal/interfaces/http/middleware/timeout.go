package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// AbortRequestOption ...
type AbortRequestOption struct {
	Timeout time.Duration
}

// AbortRequest bound the request context with a deadline, no-op if timeout is not positive
func AbortRequest(options ...*AbortRequestOption) echo.MiddlewareFunc {
	var timeout time.Duration
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if timeout <= 0 {
			return next
		}
		return func(c echo.Context) error {
			r := c.Request()
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			c.SetRequest(r.WithContext(ctx))
			return next(c)
		}
	}
}
