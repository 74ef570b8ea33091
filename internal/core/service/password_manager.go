package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/internal/core/ports"
	"github.com/crmcore/authcore/pkg/metrics"
)

// PasswordManager hashes, verifies and rotates password hashes. It is the
// only component that reads or writes Identity.PasswordHash.
type PasswordManager struct {
	repo  ports.IdentityRepository
	cost  int
	now   func() time.Time
	locks *keyedMutex
	log   zerolog.Logger
}

func NewPasswordManager(repo ports.IdentityRepository, cost int, log zerolog.Logger) *PasswordManager {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordManager{
		repo:  repo,
		cost:  cost,
		now:   func() time.Time { return time.Now().UTC() },
		locks: newKeyedMutex(),
		log:   log,
	}
}

// Hash returns a salted bcrypt hash of plaintext.
func (m *PasswordManager) Hash(plaintext string) (string, error) {
	start := time.Now()
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), m.cost)
	metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password exceeds %d bytes", domain.ErrInvalidInput, domain.MaxPasswordBytes)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Verify reports whether plaintext matches hash. bcrypt compares the
// derived keys in constant time.
func (m *PasswordManager) Verify(plaintext, hash string) bool {
	start := time.Now()
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	metrics.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	return err == nil
}

// ChangePassword verifies the current password and replaces the stored hash.
// Attempts for the same identity are serialised in-process, and the store
// swaps the hash only if it is still the one that was verified, so a change
// racing from another instance loses with ErrPasswordMismatch.
func (m *PasswordManager) ChangePassword(ctx context.Context, identityID string, in ports.ChangePasswordInput) error {
	unlock := m.locks.Lock(identityID)
	defer unlock()

	identity, err := m.repo.FindByID(ctx, identityID)
	if err != nil {
		metrics.PasswordChangesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("change password: %w", err)
	}

	if !m.Verify(in.CurrentPassword, identity.PasswordHash) {
		metrics.PasswordChangesTotal.WithLabelValues("password_mismatch").Inc()
		m.log.Info().Str("user_id", identityID).Msg("password change rejected: current password mismatch")
		return domain.ErrPasswordMismatch
	}
	if in.NewPassword != in.ConfirmPassword {
		metrics.PasswordChangesTotal.WithLabelValues("confirmation_mismatch").Inc()
		return domain.ErrConfirmationMismatch
	}

	newHash, err := m.Hash(in.NewPassword)
	if err != nil {
		metrics.PasswordChangesTotal.WithLabelValues("error").Inc()
		return err
	}

	err = m.repo.ReplacePasswordHash(ctx, identityID, identity.PasswordHash, newHash, m.now())
	switch {
	case errors.Is(err, domain.ErrCredentialChanged):
		metrics.PasswordChangesTotal.WithLabelValues("conflict").Inc()
		m.log.Warn().Str("user_id", identityID).Msg("password change lost a concurrent update")
		return domain.ErrPasswordMismatch
	case err != nil:
		metrics.PasswordChangesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("change password: %w", err)
	}

	metrics.PasswordChangesTotal.WithLabelValues("success").Inc()
	m.log.Info().Str("user_id", identityID).Msg("password changed")
	return nil
}

// keyedMutex hands out one mutex per key and drops it once no goroutine
// holds or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
