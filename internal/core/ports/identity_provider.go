package ports

import (
	"context"

	"github.com/edusuite/platform/internal/core/domain"
)

// UnsubscribeFunc cancels an auth-event subscription. Safe to call more
// than once.
type UnsubscribeFunc func()

// IdentityProvider is the contract for the external identity service. The
// gate and the client session store depend only on this interface; a
// self-hosted implementation lives in internal/infrastructure/identity.
type IdentityProvider interface {
	// CurrentSession resolves the session for the given token pair,
	// transparently refreshing when the access token is expired. Returns
	// domain.ErrNoSession when neither token yields a session.
	CurrentSession(ctx context.Context, accessToken, refreshToken string) (*domain.Session, error)

	// RefreshSession rotates the refresh token and mints a new session.
	RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error)

	// SignInWithPassword checks credentials and issues a session.
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)

	// SignUp creates a new identity without signing it in (email
	// verification is pending). Metadata is stored alongside the identity.
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (*domain.Identity, error)

	// SignOut invalidates the session holding the given refresh token.
	SignOut(ctx context.Context, refreshToken string) error

	// SendPasswordReset emails a reset link addressed back to redirectTo.
	SendPasswordReset(ctx context.Context, email, redirectTo string) error

	// UpdatePassword replaces the credential of the identity owning the
	// access token.
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error

	// DeleteIdentity removes an identity. Administrative; used to
	// compensate a failed sign-up saga.
	DeleteIdentity(ctx context.Context, identityID string) error

	// Subscribe registers a handler for auth state changes and returns a
	// cancellation handle. Handlers run synchronously in registration
	// order.
	Subscribe(handler func(domain.AuthEvent)) UnsubscribeFunc
}
