package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// minJWTSecret mirrors the HS256 key size floor enforced by the token issuer.
const minJWTSecret = 32

type Config struct {
	Port           string `env:"PORT,            default=8080"`
	Env            string `env:"ENV,             default=development"`
	LogLevel       string `env:"LOG_LEVEL,       default=info"`
	JWTSecret      string `env:"JWT_SECRET,      required"`
	BcryptCost     int    `env:"BCRYPT_COST,     default=10"`
	MetricsEnabled bool   `env:"METRICS_ENABLED, default=true"`

	// TrustedProxies lists the CIDR ranges whose X-Forwarded-For header is
	// believed. Empty means the TCP peer address is the client IP.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=authcore"`
}

// RedisConfig is optional: an empty Addr runs the service without the
// login rate limiter.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED,         default=true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY,        default=10"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL, default=6s"`
	TTL            time.Duration `env:"RATE_LIMIT_TTL,             default=10m"`
}

// AdminConfig seeds the first administrator when the store is empty.
type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME, default=admin"`
	Email    string `env:"ADMIN_EMAIL,    default=admin@authcore.local"`
	Password string `env:"ADMIN_PASSWORD"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values envconfig cannot express as tags.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < minJWTSecret {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecret))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(strings.TrimSpace(cidr)); err != nil {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: invalid CIDR %q", cidr))
		}
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Capacity <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_CAPACITY must be positive"))
		}
		if c.RateLimit.RefillInterval <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_REFILL_INTERVAL must be positive"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
