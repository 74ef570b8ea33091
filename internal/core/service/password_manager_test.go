package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/internal/core/ports"
)

func seedIdentity(t *testing.T, repo *stubIdentityRepo, pm *PasswordManager, username, password string, role domain.Role) *domain.Identity {
	t.Helper()
	hash, err := pm.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	identity := &domain.Identity{
		Username:     username,
		Email:        username + "@x.io",
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := repo.Create(context.Background(), identity); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return identity
}

func storedHash(t *testing.T, repo *stubIdentityRepo, id string) string {
	t.Helper()
	identity, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	return identity.PasswordHash
}

func TestPasswordManager_HashAndVerify(t *testing.T) {
	pm := NewPasswordManager(newStubIdentityRepo(), bcrypt.MinCost, zerolog.Nop())

	h1, err := pm.Hash("Secr3t!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, _ := pm.Hash("Secr3t!")
	if h1 == h2 {
		t.Fatalf("expected salted hashes to differ")
	}
	if !pm.Verify("Secr3t!", h1) || !pm.Verify("Secr3t!", h2) {
		t.Fatalf("expected both hashes to verify")
	}
	if pm.Verify("secr3t!", h1) {
		t.Fatalf("expected wrong password to fail")
	}
	if pm.Verify("Secr3t!", "not-a-hash") {
		t.Fatalf("expected malformed hash to fail")
	}
}

func TestPasswordManager_HashRejectsOverlongPassword(t *testing.T) {
	pm := NewPasswordManager(newStubIdentityRepo(), bcrypt.MinCost, zerolog.Nop())

	if _, err := pm.Hash(strings.Repeat("é", 40)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for an 80 byte password, got %v", err)
	}
	if _, err := pm.Hash(strings.Repeat("é", 36)); err != nil {
		t.Fatalf("expected a 72 byte password to hash, got %v", err)
	}
}

func TestPasswordManager_ChangePassword_OverlongNewPassword(t *testing.T) {
	repo := newStubIdentityRepo()
	pm := NewPasswordManager(repo, bcrypt.MinCost, zerolog.Nop())
	alice := seedIdentity(t, repo, pm, "alice", "Secr3t!", domain.RoleSalesRep)
	before := storedHash(t, repo, alice.ID)

	long := strings.Repeat("é", 40)
	err := pm.ChangePassword(context.Background(), alice.ID, ports.ChangePasswordInput{
		CurrentPassword: "Secr3t!", NewPassword: long, ConfirmPassword: long,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if storedHash(t, repo, alice.ID) != before {
		t.Fatalf("hash must be unchanged")
	}
}

func TestPasswordManager_InvalidCostFallsBack(t *testing.T) {
	pm := NewPasswordManager(newStubIdentityRepo(), 99, zerolog.Nop())
	if pm.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", pm.cost)
	}
}

func TestPasswordManager_ChangePassword_WrongCurrent(t *testing.T) {
	repo := newStubIdentityRepo()
	pm := NewPasswordManager(repo, bcrypt.MinCost, zerolog.Nop())
	alice := seedIdentity(t, repo, pm, "alice", "Secr3t!", domain.RoleSalesRep)
	before := storedHash(t, repo, alice.ID)

	err := pm.ChangePassword(context.Background(), alice.ID, ports.ChangePasswordInput{
		CurrentPassword: "nope",
		NewPassword:     "N3w!pass",
		ConfirmPassword: "N3w!pass",
	})
	if !errors.Is(err, domain.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if storedHash(t, repo, alice.ID) != before {
		t.Fatalf("hash changed after failed change")
	}
	if !pm.Verify("Secr3t!", before) {
		t.Fatalf("old password should still verify")
	}
}

func TestPasswordManager_ChangePassword_ConfirmationMismatch(t *testing.T) {
	repo := newStubIdentityRepo()
	pm := NewPasswordManager(repo, bcrypt.MinCost, zerolog.Nop())
	alice := seedIdentity(t, repo, pm, "alice", "Secr3t!", domain.RoleSalesRep)
	before := storedHash(t, repo, alice.ID)

	err := pm.ChangePassword(context.Background(), alice.ID, ports.ChangePasswordInput{
		CurrentPassword: "Secr3t!",
		NewPassword:     "N3w!pass",
		ConfirmPassword: "N3w!pasz",
	})
	if !errors.Is(err, domain.ErrConfirmationMismatch) {
		t.Fatalf("expected ErrConfirmationMismatch, got %v", err)
	}
	if storedHash(t, repo, alice.ID) != before {
		t.Fatalf("hash changed after failed change")
	}
}

func TestPasswordManager_ChangePassword_UnknownIdentity(t *testing.T) {
	pm := NewPasswordManager(newStubIdentityRepo(), bcrypt.MinCost, zerolog.Nop())
	err := pm.ChangePassword(context.Background(), "missing", ports.ChangePasswordInput{})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPasswordManager_ChangePassword_LostRace(t *testing.T) {
	repo := newStubIdentityRepo()
	pm := NewPasswordManager(repo, bcrypt.MinCost, zerolog.Nop())
	alice := seedIdentity(t, repo, pm, "alice", "Secr3t!", domain.RoleSalesRep)

	// Another instance rotates the hash between verify and write.
	otherHash, _ := pm.Hash("Other!1")
	repo.beforeReplace = func() {
		repo.beforeReplace = nil
		current, _ := repo.FindByID(context.Background(), alice.ID)
		current.PasswordHash = otherHash
		repo.put(current)
	}

	err := pm.ChangePassword(context.Background(), alice.ID, ports.ChangePasswordInput{
		CurrentPassword: "Secr3t!",
		NewPassword:     "N3w!pass",
		ConfirmPassword: "N3w!pass",
	})
	if !errors.Is(err, domain.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if storedHash(t, repo, alice.ID) != otherHash {
		t.Fatalf("losing change must not overwrite the winner")
	}
}

func TestPasswordManager_ChangePassword_ConcurrentSameCurrent(t *testing.T) {
	repo := newStubIdentityRepo()
	pm := NewPasswordManager(repo, bcrypt.MinCost, zerolog.Nop())
	alice := seedIdentity(t, repo, pm, "alice", "Secr3t!", domain.RoleSalesRep)

	const n = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []string
		mismatch int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := "N3w!pass" + string(rune('a'+i))
			err := pm.ChangePassword(context.Background(), alice.ID, ports.ChangePasswordInput{
				CurrentPassword: "Secr3t!",
				NewPassword:     next,
				ConfirmPassword: next,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, next)
			case errors.Is(err, domain.ErrPasswordMismatch):
				mismatch++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if len(winners) != 1 || mismatch != n-1 {
		t.Fatalf("expected exactly one winner, got %d winners and %d mismatches", len(winners), mismatch)
	}
	if !pm.Verify(winners[0], storedHash(t, repo, alice.ID)) {
		t.Fatalf("stored hash does not match the winning password")
	}
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	if len(k.locks) != 2 {
		t.Fatalf("expected 2 live locks, got %d", len(k.locks))
	}
	unlockA()
	unlockB()
	if len(k.locks) != 0 {
		t.Fatalf("expected locks to be released, got %d", len(k.locks))
	}
}
