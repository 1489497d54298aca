package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/edusuite/platform/internal/core/domain"
	"github.com/edusuite/platform/internal/infrastructure/identity"
)

const credentialCollection = "identity_credentials"

// CredentialRepository persists identity credentials for the self-hosted
// provider. Email uniqueness relies on a unique index on the email field.
type CredentialRepository struct {
	coll *mongo.Collection
}

func NewCredentialRepository(db *mongo.Database) *CredentialRepository {
	return &CredentialRepository{coll: db.Collection(credentialCollection)}
}

type mongoCredential struct {
	ID            string            `bson:"_id"`
	Email         string            `bson:"email"`
	PasswordHash  []byte            `bson:"password_hash"`
	EmailVerified bool              `bson:"email_verified"`
	Metadata      map[string]string `bson:"metadata,omitempty"`
	CreatedAt     int64             `bson:"created_at"`
	UpdatedAt     int64             `bson:"updated_at"`
}

func (r *CredentialRepository) Create(ctx context.Context, cred *identity.Credential) error {
	doc := mongoCredential{
		ID:            cred.IdentityID,
		Email:         cred.Email,
		PasswordHash:  cred.PasswordHash,
		EmailVerified: cred.EmailVerified,
		Metadata:      cred.Metadata,
		CreatedAt:     cred.CreatedAt.Unix(),
		UpdatedAt:     cred.UpdatedAt.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (r *CredentialRepository) FindByEmail(ctx context.Context, email string) (*identity.Credential, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *CredentialRepository) FindByID(ctx context.Context, identityID string) (*identity.Credential, error) {
	return r.findOne(ctx, bson.M{"_id": identityID})
}

func (r *CredentialRepository) findOne(ctx context.Context, filter bson.M) (*identity.Credential, error) {
	var mc mongoCredential
	if err := r.coll.FindOne(ctx, filter).Decode(&mc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}

	return &identity.Credential{
		IdentityID:    mc.ID,
		Email:         mc.Email,
		PasswordHash:  mc.PasswordHash,
		EmailVerified: mc.EmailVerified,
		Metadata:      mc.Metadata,
		CreatedAt:     unixToTime(mc.CreatedAt),
		UpdatedAt:     unixToTime(mc.UpdatedAt),
	}, nil
}

func (r *CredentialRepository) UpdatePassword(ctx context.Context, identityID string, hash []byte) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": identityID},
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC().Unix()}},
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

func (r *CredentialRepository) Delete(ctx context.Context, identityID string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": identityID}); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
