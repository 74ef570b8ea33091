package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/internal/core/ports"
)

// stubIdentityRepo is an in-memory IdentityRepository. Uniqueness is checked
// and the record inserted under one lock, the same guarantee a unique index gives.
type stubIdentityRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.Identity
	nextID int

	// beforeReplace runs inside ReplacePasswordHash before the compare.
	beforeReplace func()
}

var _ ports.IdentityRepository = (*stubIdentityRepo)(nil)

func newStubIdentityRepo() *stubIdentityRepo {
	return &stubIdentityRepo{byID: make(map[string]*domain.Identity)}
}

func cloneIdentity(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

func (r *stubIdentityRepo) Create(_ context.Context, identity *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Username == identity.Username {
			return domain.ErrDuplicateUsername
		}
		if existing.Email == identity.Email {
			return domain.ErrDuplicateEmail
		}
	}
	r.nextID++
	identity.ID = "id-" + strconv.Itoa(r.nextID)
	r.byID[identity.ID] = cloneIdentity(identity)
	return nil
}

func (r *stubIdentityRepo) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byID[id]; ok {
		return cloneIdentity(i), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubIdentityRepo) FindByUsername(_ context.Context, username string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.byID {
		if i.Username == username {
			return cloneIdentity(i), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubIdentityRepo) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.byID {
		if i.Email == email {
			return cloneIdentity(i), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubIdentityRepo) List(_ context.Context, filter ports.ListIdentitiesFilter) ([]*domain.Identity, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Identity
	for _, i := range r.byID {
		if len(filter.Roles) > 0 && !containsRole(filter.Roles, i.Role) {
			continue
		}
		if filter.Active != nil && i.Active != *filter.Active {
			continue
		}
		matched = append(matched, cloneIdentity(i))
	}
	sort.Slice(matched, func(a, b int) bool { return matched[a].Username < matched[b].Username })

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return []*domain.Identity{}, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *stubIdentityRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

func (r *stubIdentityRepo) SetActive(_ context.Context, id string, active bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	i.Active = active
	i.UpdatedAt = at
	return nil
}

func (r *stubIdentityRepo) UpdateProfile(_ context.Context, id string, profile domain.Profile, at time.Time) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	for otherID, other := range r.byID {
		if otherID != id && profile.Email != "" && other.Email == profile.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	if profile.Email != "" {
		i.Email = profile.Email
	}
	if profile.FirstName != "" {
		i.FirstName = profile.FirstName
	}
	if profile.LastName != "" {
		i.LastName = profile.LastName
	}
	i.UpdatedAt = at
	return cloneIdentity(i), nil
}

func (r *stubIdentityRepo) UpdateRole(_ context.Context, id string, role domain.Role, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	i.Role = role
	i.UpdatedAt = at
	return nil
}

func (r *stubIdentityRepo) ReplacePasswordHash(_ context.Context, id, expectedHash, newHash string, at time.Time) error {
	if r.beforeReplace != nil {
		r.beforeReplace()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if i.PasswordHash != expectedHash {
		return domain.ErrCredentialChanged
	}
	i.PasswordHash = newHash
	i.UpdatedAt = at
	return nil
}

// put stores identity directly, bypassing uniqueness checks.
func (r *stubIdentityRepo) put(identity *domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[identity.ID] = cloneIdentity(identity)
}
