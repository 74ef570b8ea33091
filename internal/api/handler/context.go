package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/crmcore/authcore/internal/core/domain"
)

// actor returns the AuthContext attached by the Authenticate middleware.
// Its absence means the route was mounted without authentication.
func actor(c echo.Context) (domain.AuthContext, error) {
	ac, ok := domain.AuthContextFrom(c.Request().Context())
	if !ok {
		return domain.AuthContext{}, domain.ErrTokenMissing
	}
	return ac, nil
}

// bindAndValidate decodes the request into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.ErrBadRequest.WithInternal(err)
	}
	return c.Validate(req)
}
