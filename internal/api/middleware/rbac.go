package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/pkg/metrics"
)

// Require gates a route on op. It must run after Authenticate; a request
// without an AuthContext is treated as unauthenticated.
func Require(op domain.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac, ok := domain.AuthContextFrom(c.Request().Context())
			if !ok {
				return domain.ErrTokenMissing
			}

			decision := domain.Check(ac.Role, op)
			metrics.AuthorizationDecisionsTotal.WithLabelValues(string(op), decision.String()).Inc()
			if decision == domain.Deny {
				return domain.ErrInsufficientRole
			}
			return next(c)
		}
	}
}
