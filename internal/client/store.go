// Package client is the embeddable session SDK: an in-memory mirror of the
// identity provider's session and the user's profile, kept consistent with
// the server-side gate by sharing the same policy tables and role
// enumeration.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edusuite/platform/internal/core/domain"
	"github.com/edusuite/platform/internal/core/policy"
	"github.com/edusuite/platform/internal/core/ports"
)

// State is the session store's lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Navigator receives navigation signals (role landing page after sign-in,
// login page after sign-out, and so on).
type Navigator interface {
	NavigateTo(path string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(path string)

func (f NavigatorFunc) NavigateTo(path string) { f(path) }

// Snapshot is a point-in-time copy of the store's observable state.
type Snapshot struct {
	State    State
	Session  *domain.Session
	Identity *domain.Identity
	Profile  *domain.UserProfile
}

// Options tunes a SessionStore.
type Options struct {
	// BaseURL prefixes the reset-password redirect sent to the provider.
	BaseURL string
	// EventTimeout bounds the profile fetch triggered by a provider event.
	EventTimeout time.Duration
}

const defaultEventTimeout = 10 * time.Second

// SessionStore mirrors identity/session/profile state for one logical
// client context. All dependencies are injected; there is no package-level
// client instance.
//
// Transitions are serialized with a generation counter: each operation or
// provider event takes a generation when it starts, and its resolution only
// applies if no newer transition started in the meantime — the last
// completed transition always wins. A transition that fails before
// resolving releases its generation so it cannot shadow an older in-flight
// transition.
type SessionStore struct {
	provider ports.IdentityProvider
	profiles ports.ProfileStore
	nav      Navigator
	opts     Options
	log      zerolog.Logger

	mu        sync.Mutex
	state     State
	session   *domain.Session
	profile   *domain.UserProfile
	gen       uint64
	watchers  map[int]func(Snapshot)
	nextWatch int

	unsubscribe ports.UnsubscribeFunc
}

// NewSessionStore constructs a store in the Uninitialized state. Call
// Initialize before use and Close on teardown.
func NewSessionStore(provider ports.IdentityProvider, profiles ports.ProfileStore, nav Navigator, opts Options, log zerolog.Logger) *SessionStore {
	if opts.EventTimeout <= 0 {
		opts.EventTimeout = defaultEventTimeout
	}
	return &SessionStore{
		provider: provider,
		profiles: profiles,
		nav:      nav,
		opts:     opts,
		log:      log,
		state:    StateUninitialized,
		watchers: make(map[int]func(Snapshot)),
	}
}

// Initialize restores a session from a previously persisted refresh token
// (empty means start anonymous) and subscribes to provider auth events.
// Provider failures degrade to Anonymous, never to an error.
func (s *SessionStore) Initialize(ctx context.Context, refreshToken string) {
	gen := s.begin(StateLoading)

	s.unsubscribe = s.provider.Subscribe(s.onAuthEvent)

	if refreshToken == "" {
		s.commit(gen, nil, nil, StateAnonymous)
		return
	}

	session, err := s.provider.RefreshSession(ctx, refreshToken)
	if err != nil {
		if !errors.Is(err, domain.ErrNoSession) {
			s.log.Warn().Err(err).Msg("session store: restore failed")
		}
		s.commit(gen, nil, nil, StateAnonymous)
		return
	}

	profile, err := s.profiles.FindByID(ctx, session.Identity.ID)
	if err != nil {
		s.log.Warn().Err(err).Msg("session store: profile load failed on init")
		s.commit(gen, nil, nil, StateAnonymous)
		return
	}

	s.commit(gen, session, profile, StateAuthenticated)
}

// Close cancels the provider subscription. The store keeps its last state.
func (s *SessionStore) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// SignIn authenticates with the provider, loads a fresh profile, and
// signals navigation to the role's landing page. The provider's error
// surfaces verbatim; a failed attempt leaves the store's state untouched.
func (s *SessionStore) SignIn(ctx context.Context, email, password string) error {
	gen := s.begin("")

	session, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.abort(gen)
		return err
	}

	profile, err := s.profiles.FindByID(ctx, session.Identity.ID)
	if err != nil {
		s.abort(gen)
		return fmt.Errorf("load profile: %w", err)
	}

	if s.commit(gen, session, profile, StateAuthenticated) {
		s.nav.NavigateTo(policy.LandingPath(profile.Role))
	}
	return nil
}

// SignUp creates the identity and exactly one profile row for it, then
// signals navigation to the email-verification page.
//
// When the profile insert fails after the identity was created, the
// orphaned identity is deleted (compensating action) and the failure is
// surfaced wrapped in domain.ErrProfileCreateFailed.
func (s *SessionStore) SignUp(ctx context.Context, email, password string, profile domain.UserProfile) error {
	identity, err := s.provider.SignUp(ctx, email, password, map[string]string{
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
		"role":       string(profile.Role),
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	profile.ID = identity.ID
	profile.Email = identity.Email
	if profile.Status == "" {
		profile.Status = domain.StatusActive
	}
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if _, err := s.profiles.Create(ctx, &profile); err != nil {
		if delErr := s.provider.DeleteIdentity(ctx, identity.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("identity_id", identity.ID).
				Msg("session store: orphaned identity could not be deleted")
		}
		return fmt.Errorf("%w: %v", domain.ErrProfileCreateFailed, err)
	}

	s.nav.NavigateTo(policy.VerifyEmailPath)
	return nil
}

// SignOut invalidates the session with the provider, clears session,
// identity, and profile in one transition, and signals navigation to login.
func (s *SessionStore) SignOut(ctx context.Context) error {
	gen, session := s.beginWithSession("")

	var refresh string
	if session != nil {
		refresh = session.RefreshToken
	}
	if err := s.provider.SignOut(ctx, refresh); err != nil {
		s.abort(gen)
		return err
	}

	if s.commit(gen, nil, nil, StateAnonymous) {
		s.nav.NavigateTo(policy.LoginPath)
	}
	return nil
}

// ResetPassword asks the provider for a reset email addressed back to the
// reset-password page. Local state is untouched.
func (s *SessionStore) ResetPassword(ctx context.Context, email string) error {
	return s.provider.SendPasswordReset(ctx, email, s.opts.BaseURL+policy.ResetPasswordPath)
}

// UpdatePassword replaces the current identity's credential. Local
// session/profile state is untouched.
func (s *SessionStore) UpdatePassword(ctx context.Context, newPassword string) error {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil {
		return domain.ErrNoSession
	}
	return s.provider.UpdatePassword(ctx, session.AccessToken, newPassword)
}

// RefreshSession forces a token rotation and re-derives identity and
// profile. Two immediate calls with no provider-side change observe the
// same identity and profile.
func (s *SessionStore) RefreshSession(ctx context.Context) error {
	gen, session := s.beginWithSession("")
	if session == nil {
		s.abort(gen)
		return domain.ErrNoSession
	}

	next, err := s.provider.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		s.abort(gen)
		return err
	}

	profile, err := s.profiles.FindByID(ctx, next.Identity.ID)
	if err != nil {
		s.abort(gen)
		return fmt.Errorf("load profile: %w", err)
	}

	s.commit(gen, next, profile, StateAuthenticated)
	return nil
}

// Snapshot returns a copy of the observable state.
func (s *SessionStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// IsAuthenticated reports whether a session is present and the profile is
// active — the condition protected resources require.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil && s.profile.IsActive()
}

// HasRole reports whether the current profile's role is in the allowed
// set. Mirrors the server-side RequireRoles middleware.
func (s *SessionStore) HasRole(allowed ...domain.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.HasRole(allowed...)
}

// Watch registers an observer called after every applied transition.
func (s *SessionStore) Watch(fn func(Snapshot)) ports.UnsubscribeFunc {
	s.mu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// onAuthEvent applies a provider-side state change: the session is replaced
// and the profile is re-fetched from scratch — a profile cached before the
// session change is never trusted.
func (s *SessionStore) onAuthEvent(event domain.AuthEvent) {
	gen := s.begin("")

	if event.Session == nil {
		s.commit(gen, nil, nil, StateAnonymous)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.EventTimeout)
	defer cancel()

	profile, err := s.profiles.FindByID(ctx, event.Session.Identity.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("identity_id", event.Session.Identity.ID).
			Msg("session store: profile load failed on auth event")
		s.commit(gen, nil, nil, StateAnonymous)
		return
	}

	s.commit(gen, event.Session, profile, StateAuthenticated)
}

// begin starts a transition and returns its generation. A non-empty state
// is applied immediately (used for Loading during initialization).
func (s *SessionStore) begin(state State) uint64 {
	gen, _ := s.beginWithSession(state)
	return gen
}

func (s *SessionStore) beginWithSession(state State) (uint64, *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if state != "" {
		s.state = state
	}
	return s.gen, s.session
}

// abort rolls back a transition that failed before resolving, so an older
// in-flight transition can still commit. A no-op once a newer transition
// has started.
func (s *SessionStore) abort(gen uint64) {
	s.mu.Lock()
	if gen == s.gen {
		s.gen--
	}
	s.mu.Unlock()
}

// commit applies a resolution if its transition is still the newest one.
// Returns false when a newer transition superseded it.
func (s *SessionStore) commit(gen uint64, session *domain.Session, profile *domain.UserProfile, state State) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.session = session
	s.profile = profile
	s.state = state

	snap := s.snapshotLocked()
	watchers := make([]func(Snapshot), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(snap)
	}
	return true
}

func (s *SessionStore) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state}
	if s.session != nil {
		session := *s.session
		snap.Session = &session
		identity := s.session.Identity
		snap.Identity = &identity
	}
	if s.profile != nil {
		profile := *s.profile
		snap.Profile = &profile
	}
	return snap
}
