package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/edusuite/platform/internal/api/handler"
	"github.com/edusuite/platform/internal/api/middleware"
	"github.com/edusuite/platform/internal/core/domain"
	"github.com/edusuite/platform/internal/core/ports"
	"github.com/edusuite/platform/internal/core/service"
	mongodb "github.com/edusuite/platform/internal/infrastructure/db/mongo"
	redisdb "github.com/edusuite/platform/internal/infrastructure/db/redis"
)

// Config tunes the HTTP layer.
type Config struct {
	// GateTimeout bounds the gate's provider and profile lookups.
	GateTimeout time.Duration
	// ResetRedirectURL is the absolute URL reset emails link back to.
	ResetRedirectURL string
	// Login throttle settings; zero values use the limiter defaults.
	LoginMaxAttempts int
	LoginWindow      time.Duration
	LoginLockout     time.Duration
}

// NewRouter builds and returns the Echo instance with all routes registered.
// The identity provider and the audit sink are built by the caller; the
// repositories hanging off db and rdb are wired here.
func NewRouter(
	db *mongo.Database,
	rdb *redis.Client,
	provider ports.IdentityProvider,
	audit middleware.AuditSink,
	cfg Config,
	log zerolog.Logger,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("edusuite_auth"))

	// --- Dependencies ---
	profileRepo := mongodb.NewProfileRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)
	limiter := redisdb.NewLoginLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginWindow, cfg.LoginLockout)
	authService := service.NewAuthService(provider, profileRepo, limiter, cfg.ResetRedirectURL, log)

	// The gate runs on every request before route handlers.
	e.Use(middleware.Gate(middleware.GateConfig{
		Provider: provider,
		Profiles: profileRepo,
		Audit:    audit,
		Timeout:  cfg.GateTimeout,
		Log:      log,
	}))

	// --- Auth routes (public) ---
	authHandler := handler.NewAuthHandler(authService)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.POST("/auth/forgot-password", authHandler.ForgotPassword)
	e.POST("/auth/update-password", authHandler.UpdatePassword)

	// --- Gated routes ---
	e.GET("/profile/me", authHandler.Me)

	auditHandler := handler.NewAuditHandler(auditRepo)
	e.GET("/settings/audit", auditHandler.List,
		middleware.RequireRoles(domain.RoleSuperAdmin, domain.RoleTenantAdmin, domain.RoleBranchAdmin))

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
