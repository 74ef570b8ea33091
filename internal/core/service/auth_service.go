package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/internal/core/ports"
	"github.com/crmcore/authcore/pkg/metrics"
)

// AuthService implements registration, login and the caller's self-service
// operations.
type AuthService struct {
	repo      ports.IdentityRepository
	passwords ports.PasswordManager
	issuer    ports.TokenIssuer
	validator ports.TokenValidator
	now       func() time.Time
	log       zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	repo ports.IdentityRepository,
	passwords ports.PasswordManager,
	issuer ports.TokenIssuer,
	validator ports.TokenValidator,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		repo:      repo,
		passwords: passwords,
		issuer:    issuer,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// Register creates a SalesRep identity and logs it in. Self-registration can
// never choose a role.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	username := domain.NormalizeUsername(in.Username)
	email := domain.NormalizeEmail(in.Email)
	if !domain.IsValidUsername(username) || email == "" || in.Password == "" {
		return nil, fmt.Errorf("register: %w", domain.ErrInvalidInput)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	now := s.now()
	identity := &domain.Identity{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         domain.RoleSalesRep,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, identity); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateUsername):
			metrics.RegistrationsTotal.WithLabelValues("duplicate_username").Inc()
		case errors.Is(err, domain.ErrDuplicateEmail):
			metrics.RegistrationsTotal.WithLabelValues("duplicate_email").Inc()
		default:
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	token, err := s.issuer.Issue(identity)
	if err != nil {
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", identity.ID).Str("username", identity.Username).Msg("identity registered")
	return &ports.AuthResult{Token: token, Identity: identity}, nil
}

// Login verifies username/password and issues a token. Unknown usernames,
// wrong passwords and deactivated accounts are indistinguishable to callers
// that map ErrAccountDisabled the same way as ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	username = domain.NormalizeUsername(username)
	if username == "" || password == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	identity, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Burn the same bcrypt time as a real comparison.
		s.passwords.Verify(password, s.dummy())
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.passwords.Verify(password, identity.PasswordHash) {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		s.log.Info().Str("username", username).Msg("login failed")
		return nil, domain.ErrInvalidCredentials
	}
	if !identity.Active {
		metrics.LoginAttemptsTotal.WithLabelValues("disabled").Inc()
		s.log.Warn().Str("user_id", identity.ID).Msg("login attempt on disabled account")
		return nil, domain.ErrAccountDisabled
	}

	token, err := s.issuer.Issue(identity)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", identity.ID).Str("role", string(identity.Role)).Msg("login succeeded")
	return &ports.AuthResult{Token: token, Identity: identity}, nil
}

// Validate reports whether raw is a currently valid token.
func (s *AuthService) Validate(raw string) bool {
	_, err := s.validator.Validate(raw)
	return err == nil
}

// Me returns the stored identity behind the caller's token. A deactivated
// identity is still returned: its token stays valid until expiry.
func (s *AuthService) Me(ctx context.Context, actor domain.AuthContext) (*domain.Identity, error) {
	return s.self(ctx, actor)
}

// UpdateOwnProfile lets the caller change email and names. Username and
// role are not reachable from here.
func (s *AuthService) UpdateOwnProfile(ctx context.Context, actor domain.AuthContext, profile domain.Profile) (*domain.Identity, error) {
	me, err := s.self(ctx, actor)
	if err != nil {
		return nil, err
	}
	profile.Email = domain.NormalizeEmail(profile.Email)
	return s.repo.UpdateProfile(ctx, me.ID, profile, s.now())
}

// ChangePassword rotates the caller's own password.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.AuthContext, in ports.ChangePasswordInput) error {
	me, err := s.self(ctx, actor)
	if err != nil {
		return err
	}
	return s.passwords.ChangePassword(ctx, me.ID, in)
}

func (s *AuthService) self(ctx context.Context, actor domain.AuthContext) (*domain.Identity, error) {
	if actor.Subject == "" {
		return nil, domain.ErrTokenMissing
	}
	identity, err := s.repo.FindByUsername(ctx, actor.Subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: unknown subject", domain.ErrTokenInvalid)
	}
	return identity, err
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.passwords.Hash(uuid.NewString())
		if err != nil {
			s.log.Error().Err(err).Msg("failed to prepare dummy password hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
