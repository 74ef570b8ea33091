package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/crmcore/authcore/internal/core/ports"
	"github.com/crmcore/authcore/pkg/metrics"
)

// RateLimit throttles a route per client IP. A nil limiter disables it, and
// limiter errors let the request through.
func RateLimit(limiter ports.RateLimiter, route string, log zerolog.Logger) echo.MiddlewareFunc {
	if limiter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}

			d, err := limiter.Allow(c.Request().Context(), route+":"+ip)
			if err != nil {
				log.Warn().Err(err).Str("route", route).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				h.Set("Retry-After", strconv.Itoa(secs))
				metrics.RateLimitedTotal.WithLabelValues(route).Inc()
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
