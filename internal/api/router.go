package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/crmcore/authcore/internal/api/handler"
	"github.com/crmcore/authcore/internal/api/middleware"
	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/internal/core/ports"
)

// Resource is a downstream route guarded by Authenticate and Require(Operation).
// The router knows nothing about what the handler does.
type Resource struct {
	Method    string
	Path      string
	Operation domain.Operation
	Handler   echo.HandlerFunc
}

// Deps wires the router. Limiter and Health entries may be nil.
type Deps struct {
	AuthService ports.AuthService
	UserService ports.UserService
	Validator   ports.TokenValidator
	Limiter     ports.RateLimiter
	Health      map[string]handler.Pinger
	Resources   []Resource
	Logger      zerolog.Logger

	// IPExtractor resolves the client IP the rate limiter keys on. Nil means
	// the TCP peer address; see NewIPExtractor.
	IPExtractor echo.IPExtractor

	// Metrics registers echoprometheus on the default registry; enable it
	// once per process.
	Metrics bool
	Swagger bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)
	e.Validator = handler.NewValidator()
	e.IPExtractor = d.IPExtractor
	if e.IPExtractor == nil {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echomiddleware.BodyLimit("64K"))
	if d.Metrics {
		e.Use(echoprometheus.NewMiddleware("authcore"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	authn := middleware.Authenticate(d.Validator)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.AuthService)
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register, middleware.RateLimit(d.Limiter, "register", d.Logger))
	auth.POST("/login", authHandler.Login, middleware.RateLimit(d.Limiter, "login", d.Logger))
	auth.POST("/validate", authHandler.Validate)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", authHandler.Me, authn)
	auth.PATCH("/me", authHandler.UpdateMe, authn)
	auth.POST("/change-password", authHandler.ChangePassword, authn)

	// --- User administration ---
	userHandler := handler.NewUserHandler(d.UserService)
	users := e.Group("/users", authn)
	users.GET("", userHandler.List, middleware.Require(domain.OpUserViewAll))
	users.GET("/:id", userHandler.Get, middleware.Require(domain.OpUserViewAll))
	users.POST("", userHandler.Create, middleware.Require(domain.OpUserManage))
	users.PATCH("/:id", userHandler.UpdateProfile, middleware.Require(domain.OpUserManage))
	users.PUT("/:id/active", userHandler.SetActive, middleware.Require(domain.OpUserManage))
	users.PUT("/:id/role", userHandler.ChangeRole, middleware.Require(domain.OpUserChangeRole))

	// --- Guarded downstream resources ---
	for _, r := range d.Resources {
		e.Add(r.Method, r.Path, r.Handler, authn, middleware.Require(r.Operation))
	}

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(d.Health)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	if d.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}

// requestLogger emits one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
