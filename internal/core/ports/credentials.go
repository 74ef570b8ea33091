package ports

import (
	"context"

	"github.com/crmcore/authcore/internal/core/domain"
)

// PasswordManager owns every read and write of password hashes.
type PasswordManager interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	ChangePassword(ctx context.Context, identityID string, in ChangePasswordInput) error
}

// TokenIssuer mints tokens for authenticated, active identities.
type TokenIssuer interface {
	Issue(identity *domain.Identity) (domain.Token, error)
}

// TokenValidator decodes a raw token into an AuthContext. It is a pure
// function of the token, the clock and the signing secret.
type TokenValidator interface {
	Validate(raw string) (domain.AuthContext, error)
}
