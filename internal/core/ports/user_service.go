package ports

import (
	"context"

	"github.com/crmcore/authcore/internal/core/domain"
)

// CreateUserInput is the administrative identity creation payload.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
}

// ListUsersInput carries the parameters for the user list endpoint.
type ListUsersInput struct {
	Role   string // optional filter
	Active *bool
	Page   int
	Limit  int
}

// ListUsersResult is a page of identities.
type ListUsersResult struct {
	Items      []*domain.Identity
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// UserService is the administrative identity management surface. Every
// method takes the acting AuthContext explicitly and enforces the policy.
type UserService interface {
	Create(ctx context.Context, actor domain.AuthContext, in CreateUserInput) (*domain.Identity, error)
	List(ctx context.Context, actor domain.AuthContext, in ListUsersInput) (*ListUsersResult, error)
	Get(ctx context.Context, actor domain.AuthContext, id string) (*domain.Identity, error)
	UpdateProfile(ctx context.Context, actor domain.AuthContext, id string, profile domain.Profile) (*domain.Identity, error)
	SetActive(ctx context.Context, actor domain.AuthContext, id string, active bool) error
	ChangeRole(ctx context.Context, actor domain.AuthContext, id string, role domain.Role) error
}
