package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/edusuite/platform/internal/core/domain"
	"github.com/edusuite/platform/internal/core/ports"
)

type fakeProvider struct {
	signInFn  func(email, password string) (*domain.Session, error)
	signUpFn  func(email, password string) (*domain.Identity, error)
	refreshFn func(token string) (*domain.Session, error)

	signedOutWith string
	signOutErr    error
	deletedIDs    []string
	resetEmail    string
	resetRedirect string
	handler       func(domain.AuthEvent)
}

func (p *fakeProvider) CurrentSession(_ context.Context, _, refresh string) (*domain.Session, error) {
	return p.refreshFn(refresh)
}

func (p *fakeProvider) RefreshSession(_ context.Context, token string) (*domain.Session, error) {
	if p.refreshFn == nil {
		return nil, domain.ErrNoSession
	}
	return p.refreshFn(token)
}

func (p *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*domain.Session, error) {
	return p.signInFn(email, password)
}

func (p *fakeProvider) SignUp(_ context.Context, email, password string, _ map[string]string) (*domain.Identity, error) {
	return p.signUpFn(email, password)
}

func (p *fakeProvider) SignOut(_ context.Context, refreshToken string) error {
	p.signedOutWith = refreshToken
	return p.signOutErr
}

func (p *fakeProvider) SendPasswordReset(_ context.Context, email, redirectTo string) error {
	p.resetEmail = email
	p.resetRedirect = redirectTo
	return nil
}

func (p *fakeProvider) UpdatePassword(_ context.Context, _, _ string) error { return nil }

func (p *fakeProvider) DeleteIdentity(_ context.Context, identityID string) error {
	p.deletedIDs = append(p.deletedIDs, identityID)
	return nil
}

func (p *fakeProvider) Subscribe(handler func(domain.AuthEvent)) ports.UnsubscribeFunc {
	p.handler = handler
	return func() { p.handler = nil }
}

type fakeProfiles struct {
	byID      map[string]*domain.UserProfile
	createErr error
	created   []*domain.UserProfile
	findHook  func(identityID string)
}

func newFakeProfiles(profiles ...*domain.UserProfile) *fakeProfiles {
	f := &fakeProfiles{byID: make(map[string]*domain.UserProfile)}
	for _, p := range profiles {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) FindByID(_ context.Context, identityID string) (*domain.UserProfile, error) {
	if f.findHook != nil {
		f.findHook(identityID)
	}
	p, ok := f.byID[identityID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (f *fakeProfiles) Create(_ context.Context, p *domain.UserProfile) (*domain.UserProfile, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, p)
	f.byID[p.ID] = p
	return p, nil
}

type navRecorder struct {
	paths []string
}

func (n *navRecorder) NavigateTo(path string) { n.paths = append(n.paths, path) }

func teacherSession(token string) *domain.Session {
	return &domain.Session{
		AccessToken:  "access-" + token,
		RefreshToken: token,
		ExpiresAt:    time.Now().Add(time.Hour),
		Identity:     domain.Identity{ID: "user-1", Email: "amina@school.io"},
	}
}

func teacherProfile() *domain.UserProfile {
	return &domain.UserProfile{
		ID:       "user-1",
		Email:    "amina@school.io",
		Role:     domain.RoleTeacher,
		Status:   domain.StatusActive,
		TenantID: "tenant-1",
	}
}

func newTestStore(provider *fakeProvider, profiles *fakeProfiles, nav Navigator) *SessionStore {
	return NewSessionStore(provider, profiles, nav, Options{BaseURL: "https://app.school.io"}, zerolog.Nop())
}

func TestSessionStore_InitializeWithoutTokenIsAnonymous(t *testing.T) {
	store := newTestStore(&fakeProvider{}, newFakeProfiles(), &navRecorder{})
	store.Initialize(context.Background(), "")
	defer store.Close()

	snap := store.Snapshot()
	if snap.State != StateAnonymous {
		t.Fatalf("state = %s, want anonymous", snap.State)
	}
	if snap.Session != nil || snap.Profile != nil {
		t.Fatalf("anonymous snapshot must be empty: %+v", snap)
	}
}

func TestSessionStore_InitializeRestoresSession(t *testing.T) {
	provider := &fakeProvider{
		refreshFn: func(token string) (*domain.Session, error) {
			if token != "persisted" {
				return nil, domain.ErrNoSession
			}
			return teacherSession("rotated"), nil
		},
	}
	store := newTestStore(provider, newFakeProfiles(teacherProfile()), &navRecorder{})
	store.Initialize(context.Background(), "persisted")
	defer store.Close()

	snap := store.Snapshot()
	if snap.State != StateAuthenticated {
		t.Fatalf("state = %s, want authenticated", snap.State)
	}
	if snap.Identity == nil || snap.Identity.ID != "user-1" {
		t.Fatalf("unexpected identity: %+v", snap.Identity)
	}
	if !store.IsAuthenticated() {
		t.Fatalf("expected IsAuthenticated")
	}
}

func TestSessionStore_InitializeDegradesOnProviderFailure(t *testing.T) {
	provider := &fakeProvider{
		refreshFn: func(string) (*domain.Session, error) {
			return nil, errors.New("provider down")
		},
	}
	store := newTestStore(provider, newFakeProfiles(), &navRecorder{})
	store.Initialize(context.Background(), "persisted")
	defer store.Close()

	if snap := store.Snapshot(); snap.State != StateAnonymous {
		t.Fatalf("state = %s, want anonymous", snap.State)
	}
}

func TestSessionStore_SignInNavigatesToRoleLanding(t *testing.T) {
	provider := &fakeProvider{
		signInFn: func(email, password string) (*domain.Session, error) {
			return teacherSession("r1"), nil
		},
	}
	nav := &navRecorder{}
	store := newTestStore(provider, newFakeProfiles(teacherProfile()), nav)
	store.Initialize(context.Background(), "")
	defer store.Close()

	if err := store.SignIn(context.Background(), "amina@school.io", "Str0ng!pass"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}

	snap := store.Snapshot()
	if snap.State != StateAuthenticated {
		t.Fatalf("state = %s, want authenticated", snap.State)
	}
	if len(nav.paths) != 1 || nav.paths[0] != "/dashboard/teacher" {
		t.Fatalf("unexpected navigation: %v", nav.paths)
	}
	if !store.HasRole(domain.RoleTeacher, domain.RoleStaff) {
		t.Fatalf("expected HasRole(teacher)")
	}
	if store.HasRole(domain.RoleSuperAdmin) {
		t.Fatalf("teacher must not pass a super_admin check")
	}
}

func TestSessionStore_SignInFailureLeavesStateUntouched(t *testing.T) {
	providerErr := domain.ErrInvalidCredentials
	provider := &fakeProvider{
		signInFn: func(string, string) (*domain.Session, error) {
			return nil, providerErr
		},
	}
	nav := &navRecorder{}
	store := newTestStore(provider, newFakeProfiles(), nav)
	store.Initialize(context.Background(), "")
	defer store.Close()

	err := store.SignIn(context.Background(), "amina@school.io", "wrong")
	if !errors.Is(err, providerErr) {
		t.Fatalf("provider error must surface verbatim, got %v", err)
	}
	if snap := store.Snapshot(); snap.State != StateAnonymous {
		t.Fatalf("failed sign-in must leave state anonymous, got %s", snap.State)
	}
	if len(nav.paths) != 0 {
		t.Fatalf("no navigation on failure, got %v", nav.paths)
	}
}

func TestSessionStore_SignUpCreatesExactlyOneProfile(t *testing.T) {
	provider := &fakeProvider{
		signUpFn: func(email, _ string) (*domain.Identity, error) {
			return &domain.Identity{ID: "user-9", Email: email}, nil
		},
	}
	profiles := newFakeProfiles()
	nav := &navRecorder{}
	store := newTestStore(provider, profiles, nav)
	store.Initialize(context.Background(), "")
	defer store.Close()

	err := store.SignUp(context.Background(), "new@school.io", "Str0ng!pass", domain.UserProfile{
		FirstName: "Nadia",
		Role:      domain.RoleStudent,
		TenantID:  "tenant-1",
	})
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	if len(profiles.created) != 1 {
		t.Fatalf("expected exactly one profile row, got %d", len(profiles.created))
	}
	created := profiles.created[0]
	if created.ID != "user-9" || created.Email != "new@school.io" {
		t.Fatalf("profile not keyed by identity: %+v", created)
	}
	if len(nav.paths) != 1 || nav.paths[0] != "/auth/verify-email" {
		t.Fatalf("unexpected navigation: %v", nav.paths)
	}
	// No session until the email is verified and the user signs in.
	if snap := store.Snapshot(); snap.State != StateAnonymous {
		t.Fatalf("sign-up must not authenticate, state = %s", snap.State)
	}
}

func TestSessionStore_SignUpCompensatesFailedProfileInsert(t *testing.T) {
	provider := &fakeProvider{
		signUpFn: func(email, _ string) (*domain.Identity, error) {
			return &domain.Identity{ID: "user-9", Email: email}, nil
		},
	}
	profiles := newFakeProfiles()
	profiles.createErr = errors.New("duplicate key")
	store := newTestStore(provider, profiles, &navRecorder{})
	store.Initialize(context.Background(), "")
	defer store.Close()

	err := store.SignUp(context.Background(), "new@school.io", "Str0ng!pass", domain.UserProfile{
		Role:     domain.RoleStudent,
		TenantID: "tenant-1",
	})
	if !errors.Is(err, domain.ErrProfileCreateFailed) {
		t.Fatalf("expected ErrProfileCreateFailed, got %v", err)
	}
	if len(provider.deletedIDs) != 1 || provider.deletedIDs[0] != "user-9" {
		t.Fatalf("orphaned identity not deleted: %v", provider.deletedIDs)
	}
}

func TestSessionStore_SignOutClearsEverything(t *testing.T) {
	provider := &fakeProvider{
		signInFn: func(string, string) (*domain.Session, error) {
			return teacherSession("r1"), nil
		},
	}
	nav := &navRecorder{}
	store := newTestStore(provider, newFakeProfiles(teacherProfile()), nav)
	store.Initialize(context.Background(), "")
	defer store.Close()

	if err := store.SignIn(context.Background(), "amina@school.io", "Str0ng!pass"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if err := store.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out failed: %v", err)
	}

	if provider.signedOutWith != "r1" {
		t.Fatalf("provider got refresh token %q, want r1", provider.signedOutWith)
	}
	snap := store.Snapshot()
	if snap.State != StateAnonymous || snap.Session != nil || snap.Profile != nil {
		t.Fatalf("sign-out must clear session and profile: %+v", snap)
	}
	if last := nav.paths[len(nav.paths)-1]; last != "/auth/login" {
		t.Fatalf("expected navigation to login, got %s", last)
	}
}

func TestSessionStore_LastCompletedTransitionWins(t *testing.T) {
	// The sign-out completes while the sign-in is still in flight at the
	// provider; the sign-in's late resolution must not resurrect the
	// session.
	var store *SessionStore
	provider := &fakeProvider{}
	provider.signInFn = func(string, string) (*domain.Session, error) {
		if err := store.SignOut(context.Background()); err != nil {
			t.Fatalf("interleaved sign out failed: %v", err)
		}
		return teacherSession("stale"), nil
	}
	nav := &navRecorder{}
	store = newTestStore(provider, newFakeProfiles(teacherProfile()), nav)
	store.Initialize(context.Background(), "")
	defer store.Close()

	if err := store.SignIn(context.Background(), "amina@school.io", "Str0ng!pass"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}

	snap := store.Snapshot()
	if snap.State != StateAnonymous || snap.Session != nil {
		t.Fatalf("superseded sign-in must not apply: %+v", snap)
	}
	for _, p := range nav.paths {
		if p == "/dashboard/teacher" {
			t.Fatalf("superseded sign-in must not navigate, got %v", nav.paths)
		}
	}
}

func TestSessionStore_FailedSignInDoesNotShadowInFlightEvent(t *testing.T) {
	// A sign-in that fails at the provider while an auth event is still
	// resolving releases its generation; the older event's transition must
	// still commit.
	var store *SessionStore
	provider := &fakeProvider{
		signInFn: func(string, string) (*domain.Session, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	profiles := newFakeProfiles(teacherProfile())
	interleaved := false
	profiles.findHook = func(string) {
		if interleaved {
			return
		}
		interleaved = true
		err := store.SignIn(context.Background(), "amina@school.io", "wrong")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("interleaved sign-in: %v", err)
		}
	}
	store = newTestStore(provider, profiles, &navRecorder{})
	store.Initialize(context.Background(), "")
	defer store.Close()

	provider.handler(domain.AuthEvent{
		Kind:      domain.EventTokenRefreshed,
		Session:   teacherSession("r9"),
		Timestamp: time.Now(),
	})

	if snap := store.Snapshot(); snap.State != StateAuthenticated {
		t.Fatalf("event transition discarded by failed sign-in, state = %s", snap.State)
	}
}

func TestSessionStore_RefreshSessionIsIdempotentOnIdentity(t *testing.T) {
	rotation := 0
	provider := &fakeProvider{
		signInFn: func(string, string) (*domain.Session, error) {
			return teacherSession("r0"), nil
		},
		refreshFn: func(string) (*domain.Session, error) {
			rotation++
			return teacherSession("r" + string(rune('0'+rotation))), nil
		},
	}
	store := newTestStore(provider, newFakeProfiles(teacherProfile()), &navRecorder{})
	store.Initialize(context.Background(), "")
	defer store.Close()

	if err := store.SignIn(context.Background(), "amina@school.io", "Str0ng!pass"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}

	if err := store.RefreshSession(context.Background()); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	first := store.Snapshot()
	if err := store.RefreshSession(context.Background()); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	second := store.Snapshot()

	if first.Identity.ID != second.Identity.ID {
		t.Fatalf("identity changed across refreshes: %s vs %s", first.Identity.ID, second.Identity.ID)
	}
	if first.Profile.Role != second.Profile.Role {
		t.Fatalf("profile changed across refreshes")
	}
	if first.Session.RefreshToken == second.Session.RefreshToken {
		t.Fatalf("tokens must rotate on refresh")
	}
}

func TestSessionStore_RefreshWithoutSession(t *testing.T) {
	store := newTestStore(&fakeProvider{}, newFakeProfiles(), &navRecorder{})
	store.Initialize(context.Background(), "")
	defer store.Close()

	if err := store.RefreshSession(context.Background()); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSessionStore_UpdatePasswordRequiresSession(t *testing.T) {
	store := newTestStore(&fakeProvider{}, newFakeProfiles(), &navRecorder{})
	store.Initialize(context.Background(), "")
	defer store.Close()

	if err := store.UpdatePassword(context.Background(), "N3w!passw0rd"); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSessionStore_ResetPasswordTargetsResetPage(t *testing.T) {
	provider := &fakeProvider{}
	store := newTestStore(provider, newFakeProfiles(), &navRecorder{})
	store.Initialize(context.Background(), "")
	defer store.Close()

	if err := store.ResetPassword(context.Background(), "amina@school.io"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if provider.resetRedirect != "https://app.school.io/auth/reset-password" {
		t.Fatalf("unexpected redirect: %s", provider.resetRedirect)
	}
}

func TestSessionStore_ProviderEventsReachWatchers(t *testing.T) {
	provider := &fakeProvider{}
	store := newTestStore(provider, newFakeProfiles(teacherProfile()), &navRecorder{})
	store.Initialize(context.Background(), "")
	defer store.Close()

	var seen []State
	unsubscribe := store.Watch(func(s Snapshot) { seen = append(seen, s.State) })

	// A refresh performed elsewhere (another tab, the server gate) surfaces
	// through the provider subscription.
	provider.handler(domain.AuthEvent{
		Kind:      domain.EventTokenRefreshed,
		Session:   teacherSession("r9"),
		Timestamp: time.Now(),
	})

	if len(seen) != 1 || seen[0] != StateAuthenticated {
		t.Fatalf("watcher saw %v, want [authenticated]", seen)
	}
	if !store.IsAuthenticated() {
		t.Fatalf("event must authenticate the store")
	}

	unsubscribe()
	provider.handler(domain.AuthEvent{Kind: domain.EventSignedOut})
	if len(seen) != 1 {
		t.Fatalf("unsubscribed watcher must not fire, saw %v", seen)
	}
	if store.IsAuthenticated() {
		t.Fatalf("signed-out event must clear the session")
	}
}
