package ports

import (
	"context"

	"github.com/crmcore/authcore/internal/core/domain"
)

// RegisterInput is the self-service registration payload.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ChangePasswordInput carries a password change request for the caller.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// AuthResult is returned by a successful registration or login.
type AuthResult struct {
	Token    domain.Token
	Identity *domain.Identity
}

// AuthService covers the unauthenticated and self-service endpoints.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	// Validate reports whether raw is a currently valid token. It never errors.
	Validate(raw string) bool
	Me(ctx context.Context, actor domain.AuthContext) (*domain.Identity, error)
	UpdateOwnProfile(ctx context.Context, actor domain.AuthContext, profile domain.Profile) (*domain.Identity, error)
	ChangePassword(ctx context.Context, actor domain.AuthContext, in ChangePasswordInput) error
}
