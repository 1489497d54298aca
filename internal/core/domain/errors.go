package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrProfileNotFound    = errors.New("user profile not found")
	ErrAccountInactive    = errors.New("account is not active")
	ErrNoSession          = errors.New("no session")
	ErrSessionExpired     = errors.New("session expired")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrIdentityNotFound   = errors.New("identity not found")

	// ErrProfileCreateFailed marks the partial-failure case where the
	// identity was created but the profile insert did not succeed. It is
	// surfaced distinctly so callers can tell it apart from a plain
	// sign-up rejection.
	ErrProfileCreateFailed = errors.New("profile creation failed after identity creation")
)
