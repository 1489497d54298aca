package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edusuite/platform/internal/core/domain"
)

// Key format: refresh:<token> -> identity id
const refreshKeyPrefix = "refresh:"

// rotateScript atomically consumes the old token and installs the new one
// for the same identity. Returns the owner, or false when the old token is
// unknown or expired — a reused (already-rotated) token therefore fails.
const rotateScript = `
local owner = redis.call("GET", KEYS[1])
if not owner then
  return false
end
redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], owner, "PX", ARGV[1])
return owner
`

var rotateLua = redis.NewScript(rotateScript)

// TokenStore holds single-use refresh tokens in Redis.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore wraps the given Redis client.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// Save stores a refresh token for an identity with the given TTL.
func (s *TokenStore) Save(ctx context.Context, token, identityID string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(token), identityID, ttl).Err()
}

// Rotate consumes oldToken and installs newToken atomically, returning the
// owning identity id. Returns domain.ErrNoSession when oldToken is unknown.
func (s *TokenStore) Rotate(ctx context.Context, oldToken, newToken string, ttl time.Duration) (string, error) {
	res, err := rotateLua.Run(ctx, s.client,
		[]string{s.key(oldToken), s.key(newToken)},
		ttl.Milliseconds(),
	).Result()
	if err == redis.Nil {
		return "", domain.ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("rotate refresh token: %w", err)
	}

	owner, ok := res.(string)
	if !ok || owner == "" {
		return "", domain.ErrNoSession
	}
	return owner, nil
}

// Delete removes a token and returns its owner, or domain.ErrNoSession when
// the token was not present.
func (s *TokenStore) Delete(ctx context.Context, token string) (string, error) {
	owner, err := s.client.GetDel(ctx, s.key(token)).Result()
	if err == redis.Nil {
		return "", domain.ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("delete refresh token: %w", err)
	}
	return owner, nil
}

func (s *TokenStore) key(token string) string {
	return refreshKeyPrefix + token
}
