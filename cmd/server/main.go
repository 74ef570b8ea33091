package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/crmcore/authcore/docs"

	"github.com/crmcore/authcore/internal/api"
	"github.com/crmcore/authcore/internal/api/handler"
	"github.com/crmcore/authcore/internal/core/ports"
	"github.com/crmcore/authcore/internal/core/service"
	"github.com/crmcore/authcore/internal/infrastructure/config"
	mongodb "github.com/crmcore/authcore/internal/infrastructure/db/mongo"
	redisdb "github.com/crmcore/authcore/internal/infrastructure/db/redis"
	"github.com/crmcore/authcore/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title                       authcore API
// @version                     1.0
// @description                 Authentication and role-based access control for the CRM backend.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the token.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "authcore",
		Env:     cfg.Env,
	})

	// --- Credential store ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "authcore",
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, dcancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer dcancel()
		if err := client.Disconnect(dctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}()

	identities := mongodb.NewIdentityRepository(db)
	if err := identities.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure identity indexes: %w", err)
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("credential store ready")

	health := map[string]handler.Pinger{"mongodb": mongodb.Pinger{Client: client}, "redis": nil}

	// --- Rate limiter (optional) ---
	var limiter ports.RateLimiter
	if cfg.Redis.Addr != "" && cfg.RateLimit.Enabled {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		limiter = redisdb.NewRateLimiter(rdb, redisdb.RateLimiterConfig{
			Capacity:       cfg.RateLimit.Capacity,
			RefillInterval: cfg.RateLimit.RefillInterval,
			TTL:            cfg.RateLimit.TTL,
		})
		health["redis"] = redisdb.Pinger{Client: rdb}
		log.Info().
			Int("capacity", cfg.RateLimit.Capacity).
			Dur("refill_interval", cfg.RateLimit.RefillInterval).
			Msg("rate limiter enabled")
	} else {
		log.Warn().Msg("rate limiter disabled")
	}

	// --- Core services ---
	secret := []byte(cfg.JWTSecret)
	issuer, err := service.NewTokenIssuer(secret)
	if err != nil {
		return err
	}
	validator, err := service.NewTokenValidator(secret)
	if err != nil {
		return err
	}

	passwords := service.NewPasswordManager(identities, cfg.BcryptCost, logger.Component("passwords"))
	authService := service.NewAuthService(identities, passwords, issuer, validator, logger.Component("auth"))
	userService := service.NewUserService(identities, passwords, logger.Component("users"))

	if _, err := service.SeedAdmin(ctx, identities, passwords, service.SeedAdminInput{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}, logger.Component("seed")); err != nil {
		return err
	}

	ipExtractor, err := api.NewIPExtractor(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	e := api.NewRouter(api.Deps{
		AuthService: authService,
		UserService: userService,
		Validator:   validator,
		Limiter:     limiter,
		Health:      health,
		Logger:      logger.Component("http"),
		IPExtractor: ipExtractor,
		Metrics:     cfg.MetricsEnabled,
		Swagger:     !cfg.IsProduction(),
	})

	return serve(ctx, e, ":"+cfg.Port, log)
}

// serve runs the server until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, e interface {
	Start(address string) error
	Shutdown(ctx context.Context) error
}, addr string, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
