package ports

import (
	"context"

	"github.com/edusuite/platform/internal/core/domain"
)

// ProfileStore is the single logical table holding one UserProfile per
// identity id.
type ProfileStore interface {
	// FindByID returns the profile for an identity id, or
	// domain.ErrProfileNotFound.
	FindByID(ctx context.Context, identityID string) (*domain.UserProfile, error)

	// Create inserts exactly one profile row. Returns domain.ErrUserExists
	// when a row for the identity id already exists.
	Create(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error)
}
