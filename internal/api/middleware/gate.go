package middleware

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/edusuite/platform/internal/api/metrics"
	"github.com/edusuite/platform/internal/core/domain"
	"github.com/edusuite/platform/internal/core/policy"
	"github.com/edusuite/platform/internal/core/ports"
)

// Session cookies read by the gate and rewritten after a refresh.
const (
	AccessTokenCookie  = "es_access_token"
	RefreshTokenCookie = "es_refresh_token"
)

// Identity headers attached on protected-route pass-through. Names are part
// of the downstream contract; do not rename.
const (
	HeaderUserID   = "x-user-id"
	HeaderUserRole = "x-user-role"
	HeaderTenantID = "x-tenant-id"
	HeaderBranchID = "x-branch-id"
)

// Echo context keys mirroring the identity headers.
const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
	ContextTenantID = "tenant_id"
	ContextBranchID = "branch_id"
)

const defaultGateTimeout = 5 * time.Second

// skippedExtensions are asset suffixes the gate never inspects.
var skippedExtensions = map[string]struct{}{
	".svg": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {},
	".ico": {}, ".css": {}, ".js": {},
}

// AuditSink receives auth events without blocking the request path.
type AuditSink interface {
	Enqueue(event domain.AuthEvent)
}

// GateConfig wires the gate's collaborators.
type GateConfig struct {
	Provider ports.IdentityProvider
	Profiles ports.ProfileStore
	Audit    AuditSink     // optional
	Timeout  time.Duration // bound on provider/profile lookups, default 5s
	Log      zerolog.Logger
}

// Gate decides allow / annotate / redirect for every inbound request.
//
// Public routes always pass through, protected routes require a session and
// an active profile, everything else passes untouched. The gate never
// returns an error: every code path ends in next() or a redirect. Provider
// or store failures degrade to the most restrictive applicable outcome for
// protected routes and to pass-through otherwise.
func Gate(cfg GateConfig) echo.MiddlewareFunc {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGateTimeout
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Inbound identity headers are never trusted: the only values
			// downstream handlers may see are the ones the gate writes.
			stripIdentityHeaders(c)

			reqPath := c.Request().URL.Path
			if skipPath(reqPath) {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			start := time.Now()
			session := resolveSession(ctx, c, cfg)

			// Public routes are never gated, session or not.
			if policy.IsPublic(reqPath) {
				metrics.GateDecisionsTotal.WithLabelValues("allow", string(policy.RoutePublic)).Inc()
				return next(c)
			}

			if !policy.IsProtected(reqPath) {
				metrics.GateDecisionsTotal.WithLabelValues("allow", string(policy.RouteDefault)).Inc()
				return next(c)
			}

			defer func() {
				metrics.GateLookupDuration.Observe(time.Since(start).Seconds())
			}()

			if session == nil {
				return redirectToLogin(c, cfg, reqPath, "")
			}

			profile, err := cfg.Profiles.FindByID(ctx, session.Identity.ID)
			if err != nil {
				// Missing or corrupt profile for a live session: treat
				// as unauthenticated.
				if err != domain.ErrProfileNotFound {
					cfg.Log.Warn().Err(err).Str("user_id", session.Identity.ID).Msg("gate: profile lookup failed")
				}
				return redirectToLogin(c, cfg, reqPath, session.Identity.ID)
			}

			if !profile.IsActive() {
				metrics.GateDecisionsTotal.WithLabelValues("deny_inactive", string(policy.RouteProtected)).Inc()
				deny(cfg, session.Identity.ID, reqPath)
				return c.Redirect(http.StatusFound, policy.UnauthorizedPath)
			}

			annotate(c, session, profile)
			metrics.GateDecisionsTotal.WithLabelValues("allow", string(policy.RouteProtected)).Inc()
			return next(c)
		}
	}
}

// resolveSession reads the session cookies and resolves them through the
// provider. Refreshed tokens are written back onto the response immediately
// so they survive even when the final decision is a redirect. Any failure
// resolves to anonymous.
func resolveSession(ctx context.Context, c echo.Context, cfg GateConfig) *domain.Session {
	access := cookieValue(c, AccessTokenCookie)
	refresh := cookieValue(c, RefreshTokenCookie)
	if access == "" && refresh == "" {
		return nil
	}

	session, err := cfg.Provider.CurrentSession(ctx, access, refresh)
	if err != nil {
		if err != domain.ErrNoSession {
			cfg.Log.Debug().Err(err).Msg("gate: session resolution failed")
		}
		return nil
	}
	if session == nil {
		return nil
	}

	if session.AccessToken != access || session.RefreshToken != refresh {
		metrics.SessionsRefreshedTotal.Inc()
		writeSessionCookies(c, session)
	}
	return session
}

func redirectToLogin(c echo.Context, cfg GateConfig, reqPath, identityID string) error {
	metrics.GateDecisionsTotal.WithLabelValues("deny_unauthenticated", string(policy.RouteProtected)).Inc()
	deny(cfg, identityID, reqPath)
	target := policy.LoginPath + "?redirect=" + url.QueryEscape(reqPath)
	return c.Redirect(http.StatusFound, target)
}

func deny(cfg GateConfig, identityID, reqPath string) {
	if cfg.Audit == nil {
		return
	}
	cfg.Audit.Enqueue(domain.AuthEvent{
		Kind:       domain.EventAccessDenied,
		IdentityID: identityID,
		Detail:     reqPath,
		Timestamp:  time.Now().UTC(),
	})
}

func stripIdentityHeaders(c echo.Context) {
	header := c.Request().Header
	header.Del(HeaderUserID)
	header.Del(HeaderUserRole)
	header.Del(HeaderTenantID)
	header.Del(HeaderBranchID)
}

// annotate attaches identity headers to the request for downstream handlers
// and mirrors them onto the response and the echo context.
func annotate(c echo.Context, session *domain.Session, profile *domain.UserProfile) {
	set := func(header, ctxKey, value string) {
		c.Request().Header.Set(header, value)
		c.Response().Header().Set(header, value)
		c.Set(ctxKey, value)
	}

	set(HeaderUserID, ContextUserID, session.Identity.ID)
	set(HeaderUserRole, ContextUserRole, string(profile.Role))
	set(HeaderTenantID, ContextTenantID, profile.TenantID)
	if profile.BranchID != "" {
		set(HeaderBranchID, ContextBranchID, profile.BranchID)
	}
}

func writeSessionCookies(c echo.Context, session *domain.Session) {
	c.SetCookie(&http.Cookie{
		Name:     AccessTokenCookie,
		Value:    session.AccessToken,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    session.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func skipPath(reqPath string) bool {
	if reqPath == "/favicon.ico" {
		return true
	}
	if strings.HasPrefix(reqPath, "/static/") || strings.HasPrefix(reqPath, "/assets/") {
		return true
	}
	_, skipped := skippedExtensions[strings.ToLower(path.Ext(reqPath))]
	return skipped
}
