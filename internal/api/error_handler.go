package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/crmcore/authcore/internal/api/handler"
	"github.com/crmcore/authcore/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and error code.
//   - Collapses all authentication failures into one generic body per class.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, handler.ErrorBody) {
	var ve *handler.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, handler.ErrorBody{
			Error:  "validation failed",
			Code:   "VALIDATION_FAILED",
			Fields: ve.Fields,
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrAccountDisabled):
		return http.StatusUnauthorized, body("invalid username or password", "INVALID_CREDENTIALS")
	case errors.Is(err, domain.ErrTokenMissing),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenExpired):
		return http.StatusUnauthorized, body("authentication required", "UNAUTHORIZED")
	case errors.Is(err, domain.ErrInsufficientRole):
		return http.StatusForbidden, body("access denied", "FORBIDDEN")
	case errors.Is(err, domain.ErrDuplicateUsername):
		return http.StatusBadRequest, body("username already exists", "DUPLICATE_USERNAME")
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusBadRequest, body("email already exists", "DUPLICATE_EMAIL")
	case errors.Is(err, domain.ErrPasswordMismatch):
		return http.StatusBadRequest, body("current password is incorrect", "PASSWORD_MISMATCH")
	case errors.Is(err, domain.ErrConfirmationMismatch):
		return http.StatusBadRequest, body("new password and confirmation do not match", "CONFIRMATION_MISMATCH")
	case errors.Is(err, domain.ErrSelfModification):
		return http.StatusBadRequest, body(domain.ErrSelfModification.Error(), "SELF_MODIFICATION")
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, body("invalid input", "VALIDATION_FAILED")
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, body("user not found", "USER_NOT_FOUND")
	}

	// Echo's own errors (bind failures, 404 from router, 429 from the limiter).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, body(fmt.Sprintf("%v", he.Message), httpCode(he.Code))
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, body("internal server error", "INTERNAL_ERROR")
}

func body(msg, code string) handler.ErrorBody {
	return handler.ErrorBody{Error: msg, Code: code}
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "UNAVAILABLE"
	}
	if status >= 500 {
		return "INTERNAL_ERROR"
	}
	return "REQUEST_FAILED"
}
