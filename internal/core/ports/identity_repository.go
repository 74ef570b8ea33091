package ports

import (
	"context"
	"time"

	"github.com/crmcore/authcore/internal/core/domain"
)

// ListIdentitiesFilter carries the query parameters for listing identities.
type ListIdentitiesFilter struct {
	Roles  []domain.Role // empty = no role filter; set by the service for RBAC scoping
	Active *bool         // nil = both active and deactivated
	Page   int           // 1-based
	Limit  int
}

// IdentityRepository is the credential store. Uniqueness of username and
// email is enforced by the store itself, never by a caller-side pre-check.
type IdentityRepository interface {
	// Create inserts identity and fills in its ID. It fails with
	// domain.ErrDuplicateUsername or domain.ErrDuplicateEmail when either value
	// is already taken by any identity, active or not.
	Create(ctx context.Context, identity *domain.Identity) error
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	FindByUsername(ctx context.Context, username string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	List(ctx context.Context, filter ListIdentitiesFilter) ([]*domain.Identity, int64, error)
	Count(ctx context.Context) (int64, error)

	// SetActive toggles the soft-delete flag.
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
	// UpdateProfile changes email and names only.
	UpdateProfile(ctx context.Context, id string, profile domain.Profile, at time.Time) (*domain.Identity, error)
	// UpdateRole is the administrative role change path.
	UpdateRole(ctx context.Context, id string, role domain.Role, at time.Time) error
	// ReplacePasswordHash swaps the stored hash only if it still equals
	// expectedHash, returning domain.ErrCredentialChanged otherwise.
	ReplacePasswordHash(ctx context.Context, id, expectedHash, newHash string, at time.Time) error
}
