package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/internal/core/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// UserService implements administrative identity management. Managers act
// only on identities they outrank; role changes are Admin-only.
type UserService struct {
	repo      ports.IdentityRepository
	passwords ports.PasswordManager
	now       func() time.Time
	log       zerolog.Logger
}

func NewUserService(repo ports.IdentityRepository, passwords ports.PasswordManager, log zerolog.Logger) *UserService {
	return &UserService{
		repo:      repo,
		passwords: passwords,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// Create adds an identity with an explicit role.
func (s *UserService) Create(ctx context.Context, actor domain.AuthContext, in ports.CreateUserInput) (*domain.Identity, error) {
	if !in.Role.Valid() {
		return nil, fmt.Errorf("create user: %w: unknown role", domain.ErrInvalidInput)
	}
	if err := domain.AuthorizeTarget(actor.Role, domain.OpUserManage, in.Role); err != nil {
		return nil, err
	}

	username := domain.NormalizeUsername(in.Username)
	email := domain.NormalizeEmail(in.Email)
	if !domain.IsValidUsername(username) || email == "" || in.Password == "" {
		return nil, fmt.Errorf("create user: %w", domain.ErrInvalidInput)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	identity := &domain.Identity{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, identity); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("actor", actor.Subject).
		Str("user_id", identity.ID).
		Str("role", string(identity.Role)).
		Msg("identity created")
	return identity, nil
}

// List returns a page of identities visible to actor.
func (s *UserService) List(ctx context.Context, actor domain.AuthContext, in ports.ListUsersInput) (*ports.ListUsersResult, error) {
	visible := domain.VisibleRoles(actor.Role, domain.OpUserViewAll)
	if len(visible) == 0 {
		return nil, domain.ErrInsufficientRole
	}

	roles := visible
	if in.Role != "" {
		r, ok := domain.ParseRole(in.Role)
		if !ok {
			return nil, fmt.Errorf("list users: %w: unknown role %q", domain.ErrInvalidInput, in.Role)
		}
		if !containsRole(visible, r) {
			return nil, domain.ErrInsufficientRole
		}
		roles = []domain.Role{r}
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	items, total, err := s.repo.List(ctx, ports.ListIdentitiesFilter{
		Roles:  roles,
		Active: in.Active,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ports.ListUsersResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Get returns one identity if actor may view it.
func (s *UserService) Get(ctx context.Context, actor domain.AuthContext, id string) (*domain.Identity, error) {
	if err := domain.Authorize(actor.Role, domain.OpUserViewAll); err != nil {
		return nil, err
	}
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.AuthorizeTarget(actor.Role, domain.OpUserViewAll, target.Role); err != nil {
		return nil, err
	}
	return target, nil
}

// UpdateProfile edits another identity's email and names.
func (s *UserService) UpdateProfile(ctx context.Context, actor domain.AuthContext, id string, profile domain.Profile) (*domain.Identity, error) {
	if _, err := s.target(ctx, actor, id); err != nil {
		return nil, err
	}
	profile.Email = domain.NormalizeEmail(profile.Email)
	updated, err := s.repo.UpdateProfile(ctx, id, profile, s.now())
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("actor", actor.Subject).Str("user_id", id).Msg("profile updated")
	return updated, nil
}

// SetActive deactivates or reactivates an identity. Outstanding tokens of a
// deactivated identity keep working until they expire.
func (s *UserService) SetActive(ctx context.Context, actor domain.AuthContext, id string, active bool) error {
	target, err := s.target(ctx, actor, id)
	if err != nil {
		return err
	}
	if target.Username == actor.Subject {
		return domain.ErrSelfModification
	}
	if err := s.repo.SetActive(ctx, id, active, s.now()); err != nil {
		return err
	}
	s.log.Info().Str("actor", actor.Subject).Str("user_id", id).Bool("active", active).Msg("activation changed")
	return nil
}

// ChangeRole is the only path that changes an identity's role. Tokens
// already issued keep the old role until they expire.
func (s *UserService) ChangeRole(ctx context.Context, actor domain.AuthContext, id string, role domain.Role) error {
	if err := domain.Authorize(actor.Role, domain.OpUserChangeRole); err != nil {
		return err
	}
	if !role.Valid() {
		return fmt.Errorf("change role: %w: unknown role", domain.ErrInvalidInput)
	}
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if target.Username == actor.Subject {
		return domain.ErrSelfModification
	}
	if err := s.repo.UpdateRole(ctx, id, role, s.now()); err != nil {
		return err
	}
	s.log.Info().
		Str("actor", actor.Subject).
		Str("user_id", id).
		Str("from", string(target.Role)).
		Str("to", string(role)).
		Msg("role changed")
	return nil
}

// target loads id and checks actor may manage it.
func (s *UserService) target(ctx context.Context, actor domain.AuthContext, id string) (*domain.Identity, error) {
	if err := domain.Authorize(actor.Role, domain.OpUserManage); err != nil {
		return nil, err
	}
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.AuthorizeTarget(actor.Role, domain.OpUserManage, target.Role); err != nil {
		return nil, err
	}
	return target, nil
}

func containsRole(roles []domain.Role, r domain.Role) bool {
	for _, v := range roles {
		if v == r {
			return true
		}
	}
	return false
}
