package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/internal/core/ports"
)

const seedPasswordBytes = 16

// SeedAdminInput describes the bootstrap administrator.
type SeedAdminInput struct {
	Username string
	Email    string
	Password string // generated when empty
}

// SeedAdmin creates the first Admin identity when the store is empty.
// A generated password is logged once and must be changed immediately.
// Returns true if an identity was created.
func SeedAdmin(ctx context.Context, repo ports.IdentityRepository, passwords ports.PasswordManager, in SeedAdminInput, log zerolog.Logger) (bool, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("seed admin: count identities: %w", err)
	}
	if count > 0 {
		log.Debug().Int64("identities", count).Msg("identities exist, skipping admin seed")
		return false, nil
	}

	password := in.Password
	generated := password == ""
	if generated {
		b := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(b); err != nil {
			return false, fmt.Errorf("seed admin: generate password: %w", err)
		}
		password = hex.EncodeToString(b)
	}

	hash, err := passwords.Hash(password)
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}

	now := time.Now().UTC()
	admin := &domain.Identity{
		Username:     domain.NormalizeUsername(in.Username),
		Email:        domain.NormalizeEmail(in.Email),
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Administrator",
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, admin); err != nil {
		// Another instance seeded the same admin between Count and Create.
		if errors.Is(err, domain.ErrDuplicateUsername) || errors.Is(err, domain.ErrDuplicateEmail) {
			log.Info().Str("username", admin.Username).Msg("bootstrap admin already created by another instance")
			return false, nil
		}
		return false, fmt.Errorf("seed admin: %w", err)
	}

	ev := log.Warn().Str("username", admin.Username).Str("action_required", "change this password immediately")
	if generated {
		ev = ev.Str("password", password)
	}
	ev.Msg("bootstrap admin created")
	return true, nil
}
