package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/edusuite/platform/internal/core/domain"
	"github.com/edusuite/platform/internal/core/ports"
)

type stubProvider struct {
	session *domain.Session
	err     error
}

func (p *stubProvider) CurrentSession(_ context.Context, _, _ string) (*domain.Session, error) {
	return p.session, p.err
}

func (p *stubProvider) RefreshSession(_ context.Context, _ string) (*domain.Session, error) {
	return p.session, p.err
}

func (p *stubProvider) SignInWithPassword(_ context.Context, _, _ string) (*domain.Session, error) {
	return p.session, p.err
}

func (p *stubProvider) SignUp(_ context.Context, _, _ string, _ map[string]string) (*domain.Identity, error) {
	return nil, p.err
}

func (p *stubProvider) SignOut(_ context.Context, _ string) error { return p.err }

func (p *stubProvider) SendPasswordReset(_ context.Context, _, _ string) error { return p.err }

func (p *stubProvider) UpdatePassword(_ context.Context, _, _ string) error { return p.err }

func (p *stubProvider) DeleteIdentity(_ context.Context, _ string) error { return p.err }
func (p *stubProvider) Subscribe(func(domain.AuthEvent)) ports.UnsubscribeFunc {
	return func() {}
}

// slowProvider blocks session resolution until the gate's deadline fires.
type slowProvider struct {
	stubProvider
}

func (p *slowProvider) CurrentSession(ctx context.Context, _, _ string) (*domain.Session, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type stubProfiles struct {
	profile *domain.UserProfile
	err     error
}

func (s *stubProfiles) FindByID(_ context.Context, _ string) (*domain.UserProfile, error) {
	return s.profile, s.err
}

func (s *stubProfiles) Create(_ context.Context, p *domain.UserProfile) (*domain.UserProfile, error) {
	return p, nil
}

type recordingSink struct {
	events []domain.AuthEvent
}

func (r *recordingSink) Enqueue(e domain.AuthEvent) { r.events = append(r.events, e) }

func activeSession() *domain.Session {
	return &domain.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
		Identity:     domain.Identity{ID: "user-1", Email: "amina@school.io"},
	}
}

func activeProfile() *domain.UserProfile {
	return &domain.UserProfile{
		ID:       "user-1",
		Email:    "amina@school.io",
		Role:     domain.RoleTeacher,
		Status:   domain.StatusActive,
		TenantID: "tenant-1",
	}
}

func gateRequest(t *testing.T, cfg GateConfig, path string, withCookies bool) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if withCookies {
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "access-1"})
		req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "refresh-1"})
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Gate(cfg)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("gate returned error: %v", err)
	}
	return rec, called
}

func TestGate_ProtectedWithoutSessionRedirects(t *testing.T) {
	cfg := GateConfig{
		Provider: &stubProvider{err: domain.ErrNoSession},
		Profiles: &stubProfiles{},
		Log:      zerolog.Nop(),
	}

	rec, called := gateRequest(t, cfg, "/dashboard", false)
	if called {
		t.Fatalf("next must not run for unauthenticated protected request")
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/auth/login?redirect=%2Fdashboard" {
		t.Fatalf("unexpected redirect target: %s", loc)
	}
}

func TestGate_ProtectedWithActiveProfilePassesAndAnnotates(t *testing.T) {
	profile := activeProfile()
	cfg := GateConfig{
		Provider: &stubProvider{session: activeSession()},
		Profiles: &stubProfiles{profile: profile},
		Log:      zerolog.Nop(),
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/students/42", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "access-1"})
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "refresh-1"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Gate(cfg)(func(c echo.Context) error {
		if got := c.Request().Header.Get(HeaderUserID); got != "user-1" {
			t.Fatalf("x-user-id = %q", got)
		}
		if got := c.Request().Header.Get(HeaderUserRole); got != "teacher" {
			t.Fatalf("x-user-role = %q", got)
		}
		if got := c.Request().Header.Get(HeaderTenantID); got != "tenant-1" {
			t.Fatalf("x-tenant-id = %q", got)
		}
		if got := c.Request().Header.Get(HeaderBranchID); got != "" {
			t.Fatalf("x-branch-id must be absent for branchless user, got %q", got)
		}
		if got, _ := c.Get(ContextUserRole).(string); got != "teacher" {
			t.Fatalf("context role = %q", got)
		}
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("gate returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get(HeaderUserID); got != "user-1" {
		t.Fatalf("response missing identity header, got %q", got)
	}
}

func TestGate_BranchHeaderSetWhenScoped(t *testing.T) {
	profile := activeProfile()
	profile.BranchID = "branch-7"
	cfg := GateConfig{
		Provider: &stubProvider{session: activeSession()},
		Profiles: &stubProfiles{profile: profile},
		Log:      zerolog.Nop(),
	}

	rec, called := gateRequest(t, cfg, "/dashboard", true)
	if !called {
		t.Fatalf("next not called")
	}
	if got := rec.Header().Get(HeaderBranchID); got != "branch-7" {
		t.Fatalf("x-branch-id = %q, want branch-7", got)
	}
}

func TestGate_SuspendedProfileRedirectsToUnauthorized(t *testing.T) {
	profile := activeProfile()
	profile.Status = domain.StatusSuspended
	sink := &recordingSink{}
	cfg := GateConfig{
		Provider: &stubProvider{session: activeSession()},
		Profiles: &stubProfiles{profile: profile},
		Audit:    sink,
		Log:      zerolog.Nop(),
	}

	rec, called := gateRequest(t, cfg, "/dashboard", true)
	if called {
		t.Fatalf("next must not run for suspended user")
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/unauthorized" {
		t.Fatalf("unexpected redirect target: %s", loc)
	}
	if len(sink.events) != 1 || sink.events[0].Kind != domain.EventAccessDenied {
		t.Fatalf("expected one access_denied event, got %+v", sink.events)
	}
}

func TestGate_PublicRoutePassesWithoutSession(t *testing.T) {
	cfg := GateConfig{
		Provider: &stubProvider{err: domain.ErrNoSession},
		Profiles: &stubProfiles{},
		Log:      zerolog.Nop(),
	}

	rec, called := gateRequest(t, cfg, "/auth/login", false)
	if !called {
		t.Fatalf("public route must pass through")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGate_DefaultRoutePassesUnannotated(t *testing.T) {
	cfg := GateConfig{
		Provider: &stubProvider{session: activeSession()},
		Profiles: &stubProfiles{profile: activeProfile()},
		Log:      zerolog.Nop(),
	}

	rec, called := gateRequest(t, cfg, "/pricing", true)
	if !called {
		t.Fatalf("default route must pass through")
	}
	if got := rec.Header().Get(HeaderUserID); got != "" {
		t.Fatalf("default routes must not carry identity headers, got %q", got)
	}
}

func TestGate_ProviderFailureFallsBackToLogin(t *testing.T) {
	cfg := GateConfig{
		Provider: &stubProvider{err: errors.New("provider unreachable")},
		Profiles: &stubProfiles{},
		Log:      zerolog.Nop(),
	}

	rec, called := gateRequest(t, cfg, "/dashboard", true)
	if called {
		t.Fatalf("next must not run when the provider fails on a protected route")
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/auth/login?redirect=") {
		t.Fatalf("unexpected redirect target: %s", loc)
	}
}

func TestGate_RefreshedCookiesSurviveRedirect(t *testing.T) {
	// Provider transparently refreshed the session, but the profile row is
	// gone: the user is bounced to login and still receives the rotated
	// cookies.
	refreshed := activeSession()
	refreshed.AccessToken = "access-2"
	refreshed.RefreshToken = "refresh-2"
	cfg := GateConfig{
		Provider: &stubProvider{session: refreshed},
		Profiles: &stubProfiles{err: domain.ErrProfileNotFound},
		Log:      zerolog.Nop(),
	}

	rec, called := gateRequest(t, cfg, "/dashboard", true)
	if called {
		t.Fatalf("next must not run without a profile")
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}

	var access, refresh string
	for _, cookie := range rec.Result().Cookies() {
		switch cookie.Name {
		case AccessTokenCookie:
			access = cookie.Value
		case RefreshTokenCookie:
			refresh = cookie.Value
		}
	}
	if access != "access-2" || refresh != "refresh-2" {
		t.Fatalf("rotated cookies not written: access=%q refresh=%q", access, refresh)
	}
}

func TestGate_StripsForgedBranchHeader(t *testing.T) {
	// Active session, branchless profile, forged x-branch-id on the inbound
	// request: the header must not survive to downstream handlers.
	cfg := GateConfig{
		Provider: &stubProvider{session: activeSession()},
		Profiles: &stubProfiles{profile: activeProfile()},
		Log:      zerolog.Nop(),
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "access-1"})
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "refresh-1"})
	req.Header.Set(HeaderBranchID, "branch-forged")
	req.Header.Set(HeaderUserRole, "super_admin")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Gate(cfg)(func(c echo.Context) error {
		if got := c.Request().Header.Get(HeaderBranchID); got != "" {
			t.Fatalf("forged x-branch-id reached downstream: %q", got)
		}
		if got := c.Request().Header.Get(HeaderUserRole); got != "teacher" {
			t.Fatalf("x-user-role = %q, want the gate-written role", got)
		}
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("gate returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGate_StripsIdentityHeadersOnUngatedRoutes(t *testing.T) {
	cfg := GateConfig{
		Provider: &stubProvider{err: domain.ErrNoSession},
		Profiles: &stubProfiles{},
		Log:      zerolog.Nop(),
	}

	for _, path := range []string{"/pricing", "/auth/login"} {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(HeaderUserID, "user-forged")
		req.Header.Set(HeaderUserRole, "super_admin")
		req.Header.Set(HeaderTenantID, "tenant-forged")
		req.Header.Set(HeaderBranchID, "branch-forged")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := Gate(cfg)(func(c echo.Context) error {
			for _, h := range []string{HeaderUserID, HeaderUserRole, HeaderTenantID, HeaderBranchID} {
				if got := c.Request().Header.Get(h); got != "" {
					t.Fatalf("%s: forged %s reached downstream: %q", path, h, got)
				}
			}
			return c.NoContent(http.StatusOK)
		})
		if err := handler(c); err != nil {
			t.Fatalf("gate returned error: %v", err)
		}
	}
}

func TestGate_SlowProviderHitsTimeout(t *testing.T) {
	cfg := GateConfig{
		Provider: &slowProvider{},
		Profiles: &stubProfiles{},
		Timeout:  20 * time.Millisecond,
		Log:      zerolog.Nop(),
	}

	start := time.Now()
	rec, called := gateRequest(t, cfg, "/dashboard", true)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("gate did not honor its timeout, took %v", elapsed)
	}
	if called {
		t.Fatalf("next must not run when session resolution times out")
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/auth/login?redirect=") {
		t.Fatalf("unexpected redirect target: %s", loc)
	}
}

func TestGate_NilSessionFromProviderIsAnonymous(t *testing.T) {
	// A provider returning (nil, nil) is out of contract but must not take
	// the gate down with it.
	cfg := GateConfig{
		Provider: &stubProvider{},
		Profiles: &stubProfiles{},
		Log:      zerolog.Nop(),
	}

	rec, called := gateRequest(t, cfg, "/dashboard", true)
	if called {
		t.Fatalf("next must not run without a session")
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/auth/login?redirect=%2Fdashboard" {
		t.Fatalf("unexpected redirect target: %s", loc)
	}
}

func TestGate_SkipsStaticAssets(t *testing.T) {
	provider := &stubProvider{err: errors.New("must not be called")}
	cfg := GateConfig{
		Provider: provider,
		Profiles: &stubProfiles{},
		Log:      zerolog.Nop(),
	}

	for _, p := range []string{"/favicon.ico", "/static/app.css", "/assets/logo.png", "/app.js"} {
		rec, called := gateRequest(t, cfg, p, true)
		if !called {
			t.Fatalf("asset path %s must pass through", p)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("asset path %s: expected 200, got %d", p, rec.Code)
		}
	}
}
