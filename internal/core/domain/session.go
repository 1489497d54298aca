package domain

import "time"

// Identity is the authenticated principal as known by the identity provider.
// The application never mutates it directly.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the token pair issued by the identity provider. A session is
// either valid or absent; no partial session is ever handed to callers.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Identity     Identity  `json:"identity"`
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// AuthEventKind identifies a provider-side auth state change.
type AuthEventKind string

const (
	EventSignedIn       AuthEventKind = "signed_in"
	EventSignedOut      AuthEventKind = "signed_out"
	EventTokenRefreshed AuthEventKind = "token_refreshed"
	// EventAccessDenied is recorded by the gate when a protected request is
	// turned away; it is audit-only and never emitted by the provider.
	EventAccessDenied AuthEventKind = "access_denied"
)

// AuthEvent carries a provider state change. Session is nil for sign-out.
type AuthEvent struct {
	Kind       AuthEventKind
	Session    *Session
	IdentityID string
	Timestamp  time.Time
	// Detail is free-form context for audit entries (e.g. denied path).
	Detail string
}
