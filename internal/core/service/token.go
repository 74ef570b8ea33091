package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/pkg/metrics"
)

const tokenIssuer = "authcore"

// MinSecretLength is the minimum HS256 signing secret size in bytes.
const MinSecretLength = 32

var errWeakSecret = fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)

// tokenClaims is the wire format: {sub, role, iat, exp} plus iss and jti.
type tokenClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenOption configures a TokenIssuer or TokenValidator.
type TokenOption func(*tokenConfig)

type tokenConfig struct {
	now func() time.Time
}

// WithClock overrides the wall clock. Used by tests to move through the TTL.
func WithClock(now func() time.Time) TokenOption {
	return func(c *tokenConfig) { c.now = now }
}

func newTokenConfig(opts []TokenOption) tokenConfig {
	cfg := tokenConfig{now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// TokenIssuer signs HS256 tokens with a fixed TTL.
type TokenIssuer struct {
	secret []byte
	cfg    tokenConfig
}

func NewTokenIssuer(secret []byte, opts ...TokenOption) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, errWeakSecret
	}
	return &TokenIssuer{secret: secret, cfg: newTokenConfig(opts)}, nil
}

// Issue mints a token for identity. Callers must have verified the password
// first; inactive identities are refused with ErrAccountDisabled.
func (i *TokenIssuer) Issue(identity *domain.Identity) (domain.Token, error) {
	if identity == nil || !identity.Active {
		return domain.Token{}, domain.ErrAccountDisabled
	}
	if identity.Username == "" || !identity.Role.Valid() {
		return domain.Token{}, fmt.Errorf("issue token: incomplete identity %q", identity.ID)
	}

	now := i.cfg.now().UTC().Truncate(time.Second)
	exp := now.Add(domain.TokenTTL)
	claims := tokenClaims{
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   identity.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return domain.Token{}, fmt.Errorf("sign token: %w", err)
	}

	metrics.TokensIssuedTotal.WithLabelValues(string(identity.Role)).Inc()
	return domain.Token{
		Value:     signed,
		Subject:   identity.Username,
		Role:      identity.Role,
		IssuedAt:  now,
		ExpiresAt: exp,
	}, nil
}

// TokenValidator verifies tokens without touching the credential store. The
// role in the token is trusted until it expires.
type TokenValidator struct {
	secret []byte
	cfg    tokenConfig
	parser *jwt.Parser
}

func NewTokenValidator(secret []byte, opts ...TokenOption) (*TokenValidator, error) {
	if len(secret) < MinSecretLength {
		return nil, errWeakSecret
	}
	cfg := newTokenConfig(opts)
	return &TokenValidator{
		secret: secret,
		cfg:    cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(cfg.now),
			// jwt rejects at now == exp. The leeway lets the After check in
			// validate decide, so a token is still valid at its exact expiry.
			jwt.WithLeeway(time.Second),
		),
	}, nil
}

// Validate walks Absent → Malformed → BadSignature → Expired → Valid and
// returns the decoded AuthContext only in the last state.
func (v *TokenValidator) Validate(raw string) (domain.AuthContext, error) {
	ac, err := v.validate(raw)
	metrics.TokenValidationsTotal.WithLabelValues(validationResult(err)).Inc()
	return ac, err
}

func (v *TokenValidator) validate(raw string) (domain.AuthContext, error) {
	if raw == "" {
		return domain.AuthContext{}, domain.ErrTokenMissing
	}

	var claims tokenClaims
	_, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domain.AuthContext{}, fmt.Errorf("%w: malformed", domain.ErrTokenInvalid)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return domain.AuthContext{}, fmt.Errorf("%w: bad signature", domain.ErrTokenInvalid)
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.AuthContext{}, domain.ErrTokenExpired
	default:
		return domain.AuthContext{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	if claims.ExpiresAt == nil || v.cfg.now().After(claims.ExpiresAt.Time) {
		return domain.AuthContext{}, domain.ErrTokenExpired
	}
	if claims.Subject == "" {
		return domain.AuthContext{}, fmt.Errorf("%w: missing subject", domain.ErrTokenInvalid)
	}
	if !claims.Role.Valid() {
		return domain.AuthContext{}, fmt.Errorf("%w: unknown role", domain.ErrTokenInvalid)
	}

	return domain.AuthContext{Subject: claims.Subject, Role: claims.Role}, nil
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, domain.ErrTokenMissing):
		return "missing"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	default:
		return "invalid"
	}
}
