package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/pot-code/progress-engine/internal/catalog"
	"github.com/pot-code/progress-engine/internal/domain"
)

// CatalogScope memoize catalog lookups for the duration of each request
func CatalogScope(gw domain.CatalogGateway) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			c.SetRequest(r.WithContext(catalog.WithScope(r.Context(), gw)))
			return next(c)
		}
	}
}
