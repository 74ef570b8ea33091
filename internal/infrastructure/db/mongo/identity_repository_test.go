package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/crmcore/authcore/internal/core/domain"
)

func TestDuplicateKeyError(t *testing.T) {
	dupEmail := mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: `E11000 duplicate key error collection: authcore.identities index: uniq_email dup key: { email: "a@x.io" }`,
	}}}
	dupUsername := mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: `E11000 duplicate key error collection: authcore.identities index: uniq_username dup key: { username: "alice" }`,
	}}}
	dupID := mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: `E11000 duplicate key error collection: authcore.identities index: _id_ dup key: { _id: ObjectId('65f0c0ffee0000000000beef') }`,
	}}}
	other := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 121, Message: "validation failed"}}}

	if err := duplicateKeyError(dupEmail); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if err := duplicateKeyError(dupUsername); !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	err := duplicateKeyError(dupID)
	if err == nil {
		t.Fatalf("expected an error for a duplicate _id")
	}
	if errors.Is(err, domain.ErrDuplicateUsername) || errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("duplicate _id must not be reported as a duplicate field, got %v", err)
	}
	if err := duplicateKeyError(other); err != nil {
		t.Fatalf("expected nil for non-duplicate error, got %v", err)
	}
}

func TestMongoIdentity_ToDomain(t *testing.T) {
	oid := primitive.NewObjectID()
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	doc := mongoIdentity{
		ID:           oid,
		Username:     "alice",
		Email:        "a@x.io",
		PasswordHash: "$2a$10$hash",
		Role:         "MANAGER",
		Active:       true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}

	got := doc.toDomain()
	if got.ID != oid.Hex() {
		t.Fatalf("expected hex id %s, got %s", oid.Hex(), got.ID)
	}
	if got.Role != domain.RoleManager || !got.Active || got.PasswordHash != "$2a$10$hash" {
		t.Fatalf("unexpected identity: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected created_at: %v", got.CreatedAt)
	}
}

func TestIdentityRepository_FindByID_BadHex(t *testing.T) {
	r := &IdentityRepository{}
	if _, err := r.FindByID(context.Background(), "not-an-object-id"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := r.SetActive(context.Background(), "zzz", false, time.Now()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := r.ReplacePasswordHash(context.Background(), "zzz", "a", "b", time.Now()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
