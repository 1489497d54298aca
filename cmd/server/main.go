package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edusuite/platform/internal/api"
	"github.com/edusuite/platform/internal/core/service"
	"github.com/edusuite/platform/internal/infrastructure/config"
	mongodb "github.com/edusuite/platform/internal/infrastructure/db/mongo"
	redisdb "github.com/edusuite/platform/internal/infrastructure/db/redis"
	"github.com/edusuite/platform/internal/infrastructure/email"
	"github.com/edusuite/platform/internal/infrastructure/identity"
	"github.com/edusuite/platform/internal/infrastructure/queue"
	"github.com/edusuite/platform/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Service: "edusuite-auth",
		Pretty:  cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	// --- Identity provider ---
	var mailer identity.Mailer
	if cfg.Mail.SendgridAPIKey != "" {
		mailer = email.NewSendgridMailer(cfg.Mail.SendgridAPIKey, cfg.Mail.FromName, cfg.Mail.FromEmail)
	} else {
		log.Warn().Msg("SENDGRID_API_KEY not set, password reset links are logged to console")
		mailer = email.NewConsoleMailer(log)
	}

	provider := identity.NewProvider(
		mongodb.NewCredentialRepository(db),
		redisdb.NewTokenStore(rdb),
		mailer,
		identity.Config{
			JWTSecret:  cfg.JWTSecret,
			AccessTTL:  cfg.Auth.AccessTokenTTL,
			RefreshTTL: cfg.Auth.RefreshTokenTTL,
		},
		log,
	)

	// --- Audit pipeline ---
	auditService := service.NewAuditService(mongodb.NewAuditRepository(db), log)
	dispatcher := queue.NewDispatcher(cfg.Auth.AuditWorkers, auditService, log)
	dispatcher.Start(ctx)

	// Provider-originated events (sign-outs, refreshes) feed the same trail
	// as gate decisions.
	unsubscribe := provider.Subscribe(dispatcher.Enqueue)
	defer unsubscribe()

	// --- HTTP ---
	e := api.NewRouter(db, rdb, provider, dispatcher, api.Config{
		GateTimeout:      cfg.Auth.GateTimeout,
		ResetRedirectURL: cfg.BaseURL + "/auth/reset-password",
		LoginMaxAttempts: cfg.Auth.LoginMaxAttempts,
		LoginWindow:      cfg.Auth.LoginWindow,
		LoginLockout:     cfg.Auth.LoginLockout,
	}, log)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
