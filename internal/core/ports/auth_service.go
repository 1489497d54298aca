package ports

import (
	"context"

	"github.com/edusuite/platform/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to Register.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
	TenantID  string
	BranchID  string // optional
}

// LoginResult bundles everything the caller needs after a successful
// sign-in: the session, the validated profile, and the role-based landing
// path.
type LoginResult struct {
	Session     *domain.Session
	Profile     *domain.UserProfile
	LandingPath string
}

// AuthService implements registration, login, and credential maintenance
// on top of the identity provider and the profile store.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Identity, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)
	RequestPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
}
