package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edusuite/platform/internal/api/metrics"
	"github.com/edusuite/platform/internal/core/domain"
	"github.com/edusuite/platform/internal/core/policy"
	"github.com/edusuite/platform/internal/core/ports"
)

// LoginRateLimiter abstracts the failed-attempt throttle (Redis).
type LoginRateLimiter interface {
	IsLockedOut(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Clear(ctx context.Context, email string) error
}

type authService struct {
	provider      ports.IdentityProvider
	profiles      ports.ProfileStore
	limiter       LoginRateLimiter
	resetRedirect string
	log           zerolog.Logger
}

// NewAuthService returns an AuthService implementation on top of the
// identity provider and the profile store. resetRedirect is the absolute
// URL password-reset emails link back to.
func NewAuthService(
	provider ports.IdentityProvider,
	profiles ports.ProfileStore,
	limiter LoginRateLimiter,
	resetRedirect string,
	log zerolog.Logger,
) ports.AuthService {
	return &authService{
		provider:      provider,
		profiles:      profiles,
		limiter:       limiter,
		resetRedirect: resetRedirect,
		log:           log,
	}
}

// Register creates the identity and exactly one profile row. A failed
// profile insert deletes the orphaned identity and surfaces the failure as
// domain.ErrProfileCreateFailed.
func (s *authService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Identity, error) {
	if in.Email == "" || in.TenantID == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if _, err := domain.ParseRole(string(in.Role)); err != nil {
		return nil, err
	}
	if check := policy.ValidatePassword(in.Password); !check.Valid {
		metrics.SignUpsTotal.WithLabelValues("weak_password").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrWeakPassword, strings.Join(check.Errors, "; "))
	}

	identity, err := s.provider.SignUp(ctx, in.Email, in.Password, map[string]string{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"role":       string(in.Role),
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			metrics.SignUpsTotal.WithLabelValues("exists").Inc()
		} else {
			metrics.SignUpsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	profile := &domain.UserProfile{
		ID:        identity.ID,
		Email:     identity.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      in.Role,
		Status:    domain.StatusActive,
		TenantID:  in.TenantID,
		BranchID:  in.BranchID,
	}
	if _, err := s.profiles.Create(ctx, profile); err != nil {
		if delErr := s.provider.DeleteIdentity(ctx, identity.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("identity_id", identity.ID).
				Msg("register: orphaned identity could not be deleted")
		}
		metrics.SignUpsTotal.WithLabelValues("profile_failed").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrProfileCreateFailed, err)
	}

	metrics.SignUpsTotal.WithLabelValues("success").Inc()
	return identity, nil
}

// Login checks the attempt budget, authenticates, and verifies the account
// is active. Inactive accounts authenticate but are rejected with a
// distinct error, never conflated with bad credentials.
func (s *authService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	locked, err := s.limiter.IsLockedOut(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Msg("login: lockout check failed, proceeding")
	} else if locked {
		metrics.SignInsTotal.WithLabelValues("locked_out").Inc()
		return nil, domain.ErrTooManyAttempts
	}

	session, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.SignInsTotal.WithLabelValues("invalid_credentials").Inc()
			if recErr := s.limiter.RecordFailure(ctx, email); recErr != nil {
				s.log.Warn().Err(recErr).Msg("login: recording failed attempt")
			}
		} else {
			metrics.SignInsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	profile, err := s.profiles.FindByID(ctx, session.Identity.ID)
	if err != nil {
		metrics.SignInsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if !profile.IsActive() {
		metrics.SignInsTotal.WithLabelValues("inactive").Inc()
		return nil, domain.ErrAccountInactive
	}

	if err := s.limiter.Clear(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("login: clearing attempt counter")
	}

	metrics.SignInsTotal.WithLabelValues("success").Inc()
	return &ports.LoginResult{
		Session:     session,
		Profile:     profile,
		LandingPath: policy.LandingPath(profile.Role),
	}, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	return s.provider.SignOut(ctx, refreshToken)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	session, err := s.provider.RefreshSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	metrics.SessionsRefreshedTotal.Inc()
	return session, nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.provider.SendPasswordReset(ctx, email, s.resetRedirect)
}

func (s *authService) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	if check := policy.ValidatePassword(newPassword); !check.Valid {
		return fmt.Errorf("%w: %s", domain.ErrWeakPassword, strings.Join(check.Errors, "; "))
	}
	return s.provider.UpdatePassword(ctx, accessToken, newPassword)
}
