package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PanicHandlingOption options for panic handling
type PanicHandlingOption struct {
	Logger *zap.Logger
}

// PanicHandling recover from panics in controller and turn them into errors,
// must be chained inside ErrorHandling
func PanicHandling(options ...*PanicHandlingOption) echo.MiddlewareFunc {
	logger := zap.NewNop()
	if len(options) > 0 && options[0].Logger != nil {
		logger = options[0].Logger
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if any := recover(); any != nil {
					var ok bool
					if err, ok = any.(error); !ok {
						err = fmt.Errorf("%v", any)
					}
					logger.Error(err.Error(),
						zap.String("url.path", c.Request().RequestURI),
						zap.String("http.request.method", c.Request().Method),
						zap.Int64("http.request.body.bytes", c.Request().ContentLength),
						zap.Strings("route.params.name", c.ParamNames()),
						zap.Strings("route.params.value", c.ParamValues()),
						zap.Stack("error.stack_trace"),
					)
				}
			}()
			return next(c)
		}
	}
}
