package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/edusuite/platform/internal/core/domain"
)

const auditCollection = "auth_audit"

// AuditRepository persists auth audit entries.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

type mongoAuditEntry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	IdentityID string             `bson:"identity_id"`
	Kind       string             `bson:"kind"`
	Detail     string             `bson:"detail,omitempty"`
	Timestamp  int64              `bson:"timestamp"`
}

func (r *AuditRepository) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	doc := mongoAuditEntry{
		IdentityID: entry.IdentityID,
		Kind:       string(entry.Kind),
		Detail:     entry.Detail,
		Timestamp:  entry.Timestamp.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByIdentity(ctx context.Context, identityID string, limit int64) ([]domain.AuditEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, bson.M{"identity_id": identityID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer cur.Close(ctx)

	var entries []domain.AuditEntry
	for cur.Next(ctx) {
		var me mongoAuditEntry
		if err := cur.Decode(&me); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, domain.AuditEntry{
			ID:         me.ID.Hex(),
			IdentityID: me.IdentityID,
			Kind:       domain.AuthEventKind(me.Kind),
			Detail:     me.Detail,
			Timestamp:  unixToTime(me.Timestamp),
		})
	}
	return entries, cur.Err()
}
