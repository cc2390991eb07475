package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

const (
	payloadKeyPrefix = "perm:user:"
	versionKeyPrefix = "perm:version:"
	scanBatchSize    = 500
)

// ErrCacheMiss reports that no valid payload is cached for the user. A stale
// version and a missing key look identical to callers.
var ErrCacheMiss = errors.New("permissions: cache miss")

// Cache stores computed permission payloads in Redis next to a per-user
// monotonic version counter. The cache is a performance layer, never a
// source of truth: every operation maps a store failure to a miss or a
// no-op wrapped in ErrStoreUnavailable so callers fall back to direct
// computation.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// TTL exposes the configured payload lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get loads the cached payload regardless of version. Most callers want
// GetValidated; Get exists for introspection and tests.
func (c *Cache) Get(ctx context.Context, userID int64) (*EffectivePermissions, error) {
	if c == nil || c.client == nil {
		return nil, ErrCacheMiss
	}
	raw, err := c.client.Get(ctx, payloadKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("permissions: get %d: %w: %w", userID, shared.ErrStoreUnavailable, err)
	}
	var payload EffectivePermissions
	if err := json.Unmarshal(raw, &payload); err != nil {
		// A corrupt entry behaves like a miss and is dropped.
		_ = c.client.Del(ctx, payloadKey(userID)).Err()
		return nil, ErrCacheMiss
	}
	return &payload, nil
}

// GetValidated loads the cached payload and checks it against both the
// authoritative version counter and the version the caller last observed.
// Any mismatch is a miss, forcing recomputation.
func (c *Cache) GetValidated(ctx context.Context, userID, expectedVersion int64) (*EffectivePermissions, error) {
	payload, err := c.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	current, err := c.Version(ctx, userID)
	if err != nil {
		return nil, err
	}
	if payload.Version != current {
		return nil, ErrCacheMiss
	}
	if expectedVersion != 0 && payload.Version != expectedVersion {
		return nil, ErrCacheMiss
	}
	return payload, nil
}

// Set stores the payload under the configured TTL, stamping ExpiresAt.
func (c *Cache) Set(ctx context.Context, payload *EffectivePermissions) error {
	if c == nil || c.client == nil || payload == nil {
		return nil
	}
	payload.ExpiresAt = time.Now().Add(c.ttl)
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("permissions: marshal %d: %w", payload.UserID, err)
	}
	if err := c.client.Set(ctx, payloadKey(payload.UserID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("permissions: set %d: %w: %w", payload.UserID, shared.ErrStoreUnavailable, err)
	}
	return nil
}

// Invalidate drops the cached payload for one user. The version counter is
// left alone; bumping it is a separate, explicit act of the mutation hooks.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, payloadKey(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("permissions: invalidate %d: %w: %w", userID, shared.ErrStoreUnavailable, err)
	}
	return nil
}

// InvalidateAll drops every cached payload. Expensive: it walks the keyspace
// with SCAN. Reserved for bulk events such as role-definition edits, which
// callers batch through the background sweep rather than invoking per
// change.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, payloadKeyPrefix+"*", scanBatchSize).Iterator()
	batch := make([]string, 0, scanBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= scanBatchSize {
			if err := flush(); err != nil {
				return fmt.Errorf("permissions: invalidate all: %w: %w", shared.ErrStoreUnavailable, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("permissions: invalidate all: %w: %w", shared.ErrStoreUnavailable, err)
	}
	if err := flush(); err != nil {
		return fmt.Errorf("permissions: invalidate all: %w: %w", shared.ErrStoreUnavailable, err)
	}
	return nil
}

// Version returns the current per-user version counter, initialising it to 1
// when missing.
func (c *Cache) Version(ctx context.Context, userID int64) (int64, error) {
	if c == nil || c.client == nil {
		return 0, fmt.Errorf("permissions: version %d: %w", userID, shared.ErrStoreUnavailable)
	}
	ver, err := c.client.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		ok, setErr := c.client.SetNX(ctx, versionKey(userID), 1, 0).Result()
		if setErr != nil {
			return 0, fmt.Errorf("permissions: version %d: %w: %w", userID, shared.ErrStoreUnavailable, setErr)
		}
		if ok {
			return 1, nil
		}
		return c.client.Get(ctx, versionKey(userID)).Int64()
	}
	if err != nil {
		return 0, fmt.Errorf("permissions: version %d: %w: %w", userID, shared.ErrStoreUnavailable, err)
	}
	return ver, nil
}

// IncrementVersion atomically bumps the per-user counter and returns the new
// value. Every mutation that changes a user's effective rights must call
// this; an INCR rather than read-modify-write so racing mutators never lose
// an update.
func (c *Cache) IncrementVersion(ctx context.Context, userID int64) (int64, error) {
	if c == nil || c.client == nil {
		return 0, fmt.Errorf("permissions: increment version %d: %w", userID, shared.ErrStoreUnavailable)
	}
	ver, err := c.client.Incr(ctx, versionKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("permissions: increment version %d: %w: %w", userID, shared.ErrStoreUnavailable, err)
	}
	return ver, nil
}

func payloadKey(userID int64) string {
	return payloadKeyPrefix + strconv.FormatInt(userID, 10)
}

func versionKey(userID int64) string {
	return versionKeyPrefix + strconv.FormatInt(userID, 10)
}
