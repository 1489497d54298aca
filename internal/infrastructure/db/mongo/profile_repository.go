package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/edusuite/platform/internal/core/domain"
)

const profileCollection = "user_profiles"

// ProfileRepository is the MongoDB-backed profile store. Rows are keyed by
// identity id; role and status are validated on every read so callers only
// ever see checked values.
type ProfileRepository struct {
	coll *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{coll: db.Collection(profileCollection)}
}

type mongoProfile struct {
	ID        string `bson:"_id"`
	Email     string `bson:"email"`
	FirstName string `bson:"first_name,omitempty"`
	LastName  string `bson:"last_name,omitempty"`
	Role      string `bson:"role"`
	Status    string `bson:"status"`
	TenantID  string `bson:"tenant_id"`
	BranchID  string `bson:"branch_id,omitempty"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func (r *ProfileRepository) FindByID(ctx context.Context, identityID string) (*domain.UserProfile, error) {
	var mp mongoProfile
	if err := r.coll.FindOne(ctx, bson.M{"_id": identityID}).Decode(&mp); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return mp.toDomain()
}

func (r *ProfileRepository) Create(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error) {
	doc := mongoProfile{
		ID:        profile.ID,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Role:      string(profile.Role),
		Status:    string(profile.Status),
		TenantID:  profile.TenantID,
		BranchID:  profile.BranchID,
		CreatedAt: profile.CreatedAt.Unix(),
		UpdatedAt: profile.UpdatedAt.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}

	return r.FindByID(ctx, profile.ID)
}

// toDomain validates the raw row at the storage boundary. A row with an
// unknown role or status is data corruption and is reported, not passed
// through.
func (mp *mongoProfile) toDomain() (*domain.UserProfile, error) {
	role, err := domain.ParseRole(mp.Role)
	if err != nil {
		return nil, fmt.Errorf("profile %s: role %q: %w", mp.ID, mp.Role, err)
	}
	status, err := domain.ParseStatus(mp.Status)
	if err != nil {
		return nil, fmt.Errorf("profile %s: status %q: %w", mp.ID, mp.Status, err)
	}

	return &domain.UserProfile{
		ID:        mp.ID,
		Email:     mp.Email,
		FirstName: mp.FirstName,
		LastName:  mp.LastName,
		Role:      role,
		Status:    status,
		TenantID:  mp.TenantID,
		BranchID:  mp.BranchID,
		CreatedAt: unixToTime(mp.CreatedAt),
		UpdatedAt: unixToTime(mp.UpdatedAt),
	}, nil
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
