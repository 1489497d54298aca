// Package identity is a self-hosted implementation of the identity-provider
// port: bcrypt credentials in a pluggable store, HS256 JWT access tokens,
// and opaque refresh tokens rotated through Redis.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/edusuite/platform/internal/core/domain"
	"github.com/edusuite/platform/internal/core/ports"
)

const (
	defaultAccessTTL  = 7 * 24 * time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour
	defaultResetTTL   = time.Hour

	claimPurposeAccess   = "access"
	claimPurposeRecovery = "recovery"
)

// Credential is the provider-owned record backing an identity.
type Credential struct {
	IdentityID    string
	Email         string
	PasswordHash  []byte
	EmailVerified bool
	Metadata      map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CredentialStore abstracts credential persistence (MongoDB in production).
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	FindByID(ctx context.Context, identityID string) (*Credential, error)
	Create(ctx context.Context, cred *Credential) error
	UpdatePassword(ctx context.Context, identityID string, hash []byte) error
	Delete(ctx context.Context, identityID string) error
}

// RefreshTokenStore abstracts the single-use refresh-token store (Redis in
// production).
type RefreshTokenStore interface {
	Save(ctx context.Context, token, identityID string, ttl time.Duration) error

	// Rotate atomically deletes oldToken and saves newToken for the same
	// identity, returning the owner. Returns domain.ErrNoSession when
	// oldToken is unknown or expired.
	Rotate(ctx context.Context, oldToken, newToken string, ttl time.Duration) (string, error)

	// Delete removes a token and returns its owner, or domain.ErrNoSession.
	Delete(ctx context.Context, token string) (string, error)
}

// Mailer delivers password-reset messages.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// Config carries the provider's token settings.
type Config struct {
	JWTSecret     string
	AccessTTL     time.Duration // default 7 days
	RefreshTTL    time.Duration // default 30 days
	ResetTokenTTL time.Duration // default 1 hour
}

// Provider implements ports.IdentityProvider.
type Provider struct {
	creds  CredentialStore
	tokens RefreshTokenStore
	mailer Mailer
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time

	hub *eventHub
}

var _ ports.IdentityProvider = (*Provider)(nil)

// NewProvider wires a Provider. Zero-value TTLs fall back to defaults.
func NewProvider(creds CredentialStore, tokens RefreshTokenStore, mailer Mailer, cfg Config, log zerolog.Logger) *Provider {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = defaultResetTTL
	}
	return &Provider{
		creds:  creds,
		tokens: tokens,
		mailer: mailer,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		hub:    newEventHub(),
	}
}

// Subscribe registers a handler for auth state changes.
func (p *Provider) Subscribe(handler func(domain.AuthEvent)) ports.UnsubscribeFunc {
	return p.hub.subscribe(handler)
}

// SignUp creates a new identity. The caller is responsible for the
// corresponding profile row; no session is issued until the email is
// verified and the user signs in.
func (p *Provider) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*domain.Identity, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	now := p.now().UTC()
	cred := &Credential{
		IdentityID:   uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.creds.Create(ctx, cred); err != nil {
		return nil, err
	}

	return &domain.Identity{ID: cred.IdentityID, Email: cred.Email}, nil
}

// SignInWithPassword checks the credential and issues a fresh session.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	cred, err := p.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	session, err := p.mintSession(ctx, cred)
	if err != nil {
		return nil, err
	}

	p.hub.emit(domain.AuthEvent{
		Kind:       domain.EventSignedIn,
		Session:    session,
		IdentityID: cred.IdentityID,
		Timestamp:  p.now().UTC(),
	})
	return session, nil
}

// CurrentSession resolves the session for a token pair, refreshing when the
// access token has expired.
func (p *Provider) CurrentSession(ctx context.Context, accessToken, refreshToken string) (*domain.Session, error) {
	if accessToken != "" {
		if identity, expiresAt, err := p.verifyAccessToken(accessToken, claimPurposeAccess); err == nil {
			return &domain.Session{
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				ExpiresAt:    expiresAt,
				Identity:     *identity,
			}, nil
		}
	}
	if refreshToken == "" {
		return nil, domain.ErrNoSession
	}
	return p.RefreshSession(ctx, refreshToken)
}

// RefreshSession rotates the refresh token and mints a new session.
func (p *Provider) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, domain.ErrNoSession
	}

	next := uuid.NewString()
	identityID, err := p.tokens.Rotate(ctx, refreshToken, next, p.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}

	cred, err := p.creds.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrNoSession
		}
		return nil, err
	}

	access, expiresAt, err := p.mintAccessToken(cred, claimPurposeAccess, p.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		AccessToken:  access,
		RefreshToken: next,
		ExpiresAt:    expiresAt,
		Identity:     domain.Identity{ID: cred.IdentityID, Email: cred.Email},
	}

	p.hub.emit(domain.AuthEvent{
		Kind:       domain.EventTokenRefreshed,
		Session:    session,
		IdentityID: cred.IdentityID,
		Timestamp:  p.now().UTC(),
	})
	return session, nil
}

// SignOut invalidates the session holding the refresh token. Unknown tokens
// are treated as already signed out.
func (p *Provider) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	identityID, err := p.tokens.Delete(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return nil
		}
		return err
	}

	p.hub.emit(domain.AuthEvent{
		Kind:       domain.EventSignedOut,
		IdentityID: identityID,
		Timestamp:  p.now().UTC(),
	})
	return nil
}

// SendPasswordReset mails a recovery link. Unknown addresses are not
// reported to the caller to avoid account enumeration.
func (p *Provider) SendPasswordReset(ctx context.Context, email, redirectTo string) error {
	cred, err := p.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			p.log.Debug().Str("email", email).Msg("password reset requested for unknown address")
			return nil
		}
		return err
	}

	token, _, err := p.mintAccessToken(cred, claimPurposeRecovery, p.cfg.ResetTokenTTL)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s?token=%s", redirectTo, token)
	if err := p.mailer.SendPasswordReset(ctx, cred.Email, link); err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}
	return nil
}

// UpdatePassword replaces the credential of the access token's owner. Both
// access and recovery tokens are accepted.
func (p *Provider) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	identity, _, err := p.verifyAccessToken(accessToken, claimPurposeAccess)
	if err != nil {
		identity, _, err = p.verifyAccessToken(accessToken, claimPurposeRecovery)
	}
	if err != nil {
		return domain.ErrNoSession
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return p.creds.UpdatePassword(ctx, identity.ID, hash)
}

// DeleteIdentity removes an identity and its credential. Used to compensate
// a failed sign-up saga.
func (p *Provider) DeleteIdentity(ctx context.Context, identityID string) error {
	return p.creds.Delete(ctx, identityID)
}

type accessClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

func (p *Provider) mintSession(ctx context.Context, cred *Credential) (*domain.Session, error) {
	access, expiresAt, err := p.mintAccessToken(cred, claimPurposeAccess, p.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}

	refresh := uuid.NewString()
	if err := p.tokens.Save(ctx, refresh, cred.IdentityID, p.cfg.RefreshTTL); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		Identity:     domain.Identity{ID: cred.IdentityID, Email: cred.Email},
	}, nil
}

func (p *Provider) mintAccessToken(cred *Credential, purpose string, ttl time.Duration) (string, time.Time, error) {
	now := p.now().UTC()
	expiresAt := now.Add(ttl)

	claims := accessClaims{
		Email:   cred.Email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cred.IdentityID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("mint token: %w", err)
	}
	return token, expiresAt, nil
}

func (p *Provider) verifyAccessToken(token, purpose string) (*domain.Identity, time.Time, error) {
	claims := &accessClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(p.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, time.Time{}, err
	}
	if !tkn.Valid || claims.Purpose != purpose {
		return nil, time.Time{}, jwt.ErrTokenInvalidClaims
	}

	return &domain.Identity{ID: claims.Subject, Email: claims.Email}, claims.ExpiresAt.Time, nil
}
