package domain

import (
	"context"
	"time"
)

// TokenTTL is the fixed validity window of every issued token.
const TokenTTL = 24 * time.Hour

// TokenType is the HTTP authorization scheme tokens are presented with.
const TokenType = "Bearer"

// Token is a signed, self-contained credential. It is never persisted.
type Token struct {
	Value     string
	Subject   string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthContext is the decoded identity of one request. It lives exactly as
// long as the request that produced it.
type AuthContext struct {
	Subject string
	Role    Role
}

type authContextKey struct{}

// WithAuthContext returns a copy of ctx carrying ac.
func WithAuthContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// AuthContextFrom extracts the AuthContext attached by the token validator.
func AuthContextFrom(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey{}).(AuthContext)
	if !ok || ac.Subject == "" || !ac.Role.Valid() {
		return AuthContext{}, false
	}
	return ac, true
}
