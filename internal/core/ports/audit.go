package ports

import (
	"context"

	"github.com/edusuite/platform/internal/core/domain"
)

// AuditService records auth events for later inspection.
type AuditService interface {
	Record(ctx context.Context, event domain.AuthEvent) error
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Insert(ctx context.Context, entry *domain.AuditEntry) error

	// ListByIdentity returns the most recent entries for an identity,
	// newest first.
	ListByIdentity(ctx context.Context, identityID string, limit int64) ([]domain.AuditEntry, error)
}
