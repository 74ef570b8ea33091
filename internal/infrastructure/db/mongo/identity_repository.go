package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/internal/core/ports"
)

const (
	identityCollection = "identities"

	indexUsername = "uniq_username"
	indexEmail    = "uniq_email"
)

// IdentityRepository stores identities in MongoDB. The unique indexes on
// username and email are what serialise concurrent registrations.
type IdentityRepository struct {
	coll *mongo.Collection
}

var _ ports.IdentityRepository = (*IdentityRepository)(nil)

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{coll: db.Collection(identityCollection)}
}

type mongoIdentity struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	FirstName    string             `bson:"first_name"`
	LastName     string             `bson:"last_name"`
	Role         string             `bson:"role"`
	Active       bool               `bson:"active"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func (m *mongoIdentity) toDomain() *domain.Identity {
	return &domain.Identity{
		ID:           m.ID.Hex(),
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Role:         domain.Role(m.Role),
		Active:       m.Active,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

// EnsureIndexes creates the unique and lookup indexes on the identities collection.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(indexUsername).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(indexEmail).SetUnique(true),
		},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "active", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoIdentity{
		ID:           primitive.NewObjectID(),
		Username:     identity.Username,
		Email:        identity.Email,
		PasswordHash: identity.PasswordHash,
		FirstName:    identity.FirstName,
		LastName:     identity.LastName,
		Role:         string(identity.Role),
		Active:       identity.Active,
		CreatedAt:    identity.CreatedAt,
		UpdatedAt:    identity.UpdatedAt,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	identity.ID = doc.ID.Hex()
	return nil
}

func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *IdentityRepository) FindByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// List returns one page of identities matching filter, ordered by username,
// and the total number of matches.
func (r *IdentityRepository) List(ctx context.Context, filter ports.ListIdentitiesFilter) ([]*domain.Identity, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if len(filter.Roles) > 0 {
		roles := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			roles = append(roles, string(role))
		}
		query["role"] = bson.M{"$in": roles}
	}
	if filter.Active != nil {
		query["active"] = *filter.Active
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count identities: %w", err)
	}

	skip := int64((filter.Page - 1) * filter.Limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "username", Value: 1}}).
		SetSkip(skip).
		SetLimit(int64(filter.Limit))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find identities: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoIdentity
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode identities: %w", err)
	}

	out := make([]*domain.Identity, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, total, nil
}

func (r *IdentityRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return r.coll.EstimatedDocumentCount(ctx)
}

func (r *IdentityRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{"active": active, "updated_at": at})
}

func (r *IdentityRepository) UpdateRole(ctx context.Context, id string, role domain.Role, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{"role": string(role), "updated_at": at})
}

// UpdateProfile sets the non-empty fields of profile and returns the stored result.
func (r *IdentityRepository) UpdateProfile(ctx context.Context, id string, profile domain.Profile, at time.Time) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	set := bson.M{"updated_at": at}
	if profile.Email != "" {
		set["email"] = profile.Email
	}
	if profile.FirstName != "" {
		set["first_name"] = profile.FirstName
	}
	if profile.LastName != "" {
		set["last_name"] = profile.LastName
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoIdentity
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, domain.ErrUserNotFound
	case err != nil:
		if dup := duplicateKeyError(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return doc.toDomain(), nil
}

// ReplacePasswordHash swaps the hash only while it still equals expectedHash.
func (r *IdentityRepository) ReplacePasswordHash(ctx context.Context, id, expectedHash, newHash string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "password_hash": expectedHash},
		bson.M{"$set": bson.M{"password_hash": newHash, "updated_at": at}},
	)
	if err != nil {
		return fmt.Errorf("replace password hash: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	// Distinguish a lost race from a missing identity.
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("replace password hash: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return domain.ErrCredentialChanged
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoIdentity
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) updateByID(ctx context.Context, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// duplicateKeyError maps an E11000 error to the violated unique field, or
// returns nil if err is not a duplicate key error. A collision on any other
// index is returned as a plain error.
func duplicateKeyError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, indexEmail):
		return domain.ErrDuplicateEmail
	case strings.Contains(msg, indexUsername):
		return domain.ErrDuplicateUsername
	}
	return fmt.Errorf("insert identity: unexpected duplicate key: %w", err)
}
