package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/internal/core/ports"
)

// Authenticate validates the Bearer token and attaches the decoded
// AuthContext to the request context. Any rejection stops the chain before
// the handler runs; the error handler renders it as 401.
func Authenticate(validator ports.TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			ac, err := validator.Validate(raw)
			if err != nil {
				return err
			}

			req := c.Request()
			c.SetRequest(req.WithContext(domain.WithAuthContext(req.Context(), ac)))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", domain.ErrTokenMissing
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, domain.TokenType) {
		return "", fmt.Errorf("%w: unsupported authorization scheme", domain.ErrTokenInvalid)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrTokenMissing
	}
	return token, nil
}
