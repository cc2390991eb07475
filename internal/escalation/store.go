package escalation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

const (
	tokenKeyPrefix = "escalation:token:"
	userKeyPrefix  = "escalation:user:"
)

// Store keeps escalation tokens in Redis. Two keys per session, both under
// the same TTL: token→userID for validation and userID→token for revocation
// and activity checks. Expiry is enforced by Redis; the store never renews.
type Store struct {
	client *redis.Client
}

// NewStore constructs a Store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Save records the session token under the given lifetime, replacing any
// previous escalation for the user.
func (s *Store) Save(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	previous, err := s.client.GetSet(ctx, userKey(userID), token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("escalation: save: %w: %w", shared.ErrStoreUnavailable, err)
	}
	if previous != "" && previous != token {
		_ = s.client.Del(ctx, tokenKey(previous)).Err()
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tokenKey(token), userID, ttl)
	pipe.Expire(ctx, userKey(userID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("escalation: save: %w: %w", shared.ErrStoreUnavailable, err)
	}
	return nil
}

// Lookup resolves a token to its user. An absent or expired token maps to
// ErrUnauthorized; a store outage maps to ErrStoreUnavailable so the caller
// can tell "no session" from "cannot know", both of which deny.
func (s *Store) Lookup(ctx context.Context, token string) (int64, error) {
	raw, err := s.client.Get(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, shared.ErrUnauthorized
		}
		return 0, fmt.Errorf("escalation: lookup: %w: %w", shared.ErrStoreUnavailable, err)
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, shared.ErrUnauthorized
	}
	return userID, nil
}

// RemainingTTL reports how long the token stays valid.
func (s *Store) RemainingTTL(ctx context.Context, token string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, tokenKey(token)).Result()
	if err != nil {
		return 0, fmt.Errorf("escalation: ttl: %w: %w", shared.ErrStoreUnavailable, err)
	}
	if ttl < 0 {
		return 0, shared.ErrUnauthorized
	}
	return ttl, nil
}

// ActiveToken returns the user's current token, or ErrUnauthorized when the
// user holds no live escalation.
func (s *Store) ActiveToken(ctx context.Context, userID int64) (string, error) {
	token, err := s.client.Get(ctx, userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", shared.ErrUnauthorized
		}
		return "", fmt.Errorf("escalation: active token: %w: %w", shared.ErrStoreUnavailable, err)
	}
	return token, nil
}

// Revoke drops the user's escalation immediately.
func (s *Store) Revoke(ctx context.Context, userID int64) error {
	token, err := s.client.Get(ctx, userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("escalation: revoke: %w: %w", shared.ErrStoreUnavailable, err)
	}
	keys := []string{userKey(userID)}
	if token != "" {
		keys = append(keys, tokenKey(token))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("escalation: revoke: %w: %w", shared.ErrStoreUnavailable, err)
	}
	return nil
}

func tokenKey(token string) string {
	return tokenKeyPrefix + token
}

func userKey(userID int64) string {
	return userKeyPrefix + strconv.FormatInt(userID, 10)
}
