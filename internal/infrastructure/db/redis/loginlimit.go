package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts   = 5
	defaultAttemptWindow = 15 * time.Minute
	defaultLockout       = 30 * time.Minute
)

// LoginLimiter throttles failed sign-in attempts per email address.
// Key formats: attempts:<email> (counter, window TTL) and lockout:<email>
// (flag, lockout TTL).
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	lockout     time.Duration
}

// NewLoginLimiter creates a limiter. Zero values fall back to the defaults
// of 5 attempts per 15 minutes with a 30 minute lockout.
func NewLoginLimiter(client *redis.Client, maxAttempts int, window, lockout time.Duration) *LoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultAttemptWindow
	}
	if lockout <= 0 {
		lockout = defaultLockout
	}
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, window: window, lockout: lockout}
}

// IsLockedOut reports whether sign-in attempts for the address are currently
// rejected.
func (l *LoginLimiter) IsLockedOut(ctx context.Context, email string) (bool, error) {
	n, err := l.client.Exists(ctx, l.lockoutKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("lockout check: %w", err)
	}
	return n > 0, nil
}

// RecordFailure counts a failed attempt and trips the lockout once the
// window budget is spent.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) error {
	key := l.attemptsKey(email)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("set attempt window: %w", err)
		}
	}

	if count >= int64(l.maxAttempts) {
		if err := l.client.Set(ctx, l.lockoutKey(email), "1", l.lockout).Err(); err != nil {
			return fmt.Errorf("set lockout: %w", err)
		}
	}
	return nil
}

// Clear resets the attempt counter after a successful sign-in.
func (l *LoginLimiter) Clear(ctx context.Context, email string) error {
	return l.client.Del(ctx, l.attemptsKey(email)).Err()
}

func (l *LoginLimiter) attemptsKey(email string) string {
	return "attempts:" + email
}

func (l *LoginLimiter) lockoutKey(email string) string {
	return "lockout:" + email
}
