package permissions

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(client, 15*time.Minute), mr
}

func testPayload(userID, version int64) *EffectivePermissions {
	return &EffectivePermissions{
		UserID:       userID,
		GlobalRights: []string{"platform:departments:read"},
		DepartmentRights: map[int64][]string{
			1: {"content:courses:read", "content:courses:write"},
		},
		DepartmentHierarchy: map[int64][]int64{1: {1, 2}},
		ComputedAt:          time.Now(),
		Version:             version,
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, err := cache.Get(ctx, 7)
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, testPayload(7, 1)))

	got, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, []string{"platform:departments:read"}, got.GlobalRights)
	assert.Equal(t, []int64{1, 2}, got.DepartmentHierarchy[1])
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), got.ExpiresAt, time.Minute)
}

func TestCacheTTLExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testPayload(7, 1)))
	mr.FastForward(16 * time.Minute)

	_, err := cache.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestVersionInitialisesToOne(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	ver, err := cache.Version(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)

	ver, err = cache.IncrementVersion(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)

	ver, err = cache.Version(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)
}

func TestGetValidatedVersionMismatchIsMiss(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	ver, err := cache.Version(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, testPayload(7, ver)))

	got, err := cache.GetValidated(ctx, 7, ver)
	require.NoError(t, err)
	assert.Equal(t, ver, got.Version)

	// Bump the authoritative counter: the old payload is stale even though a
	// raw Get still returns it.
	_, err = cache.IncrementVersion(ctx, 7)
	require.NoError(t, err)

	_, err = cache.GetValidated(ctx, 7, ver)
	assert.ErrorIs(t, err, ErrCacheMiss)

	raw, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, ver, raw.Version)
}

func TestGetValidatedCallerVersionMismatch(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	ver, err := cache.Version(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, testPayload(7, ver)))

	_, err = cache.GetValidated(ctx, 7, ver+10)
	assert.ErrorIs(t, err, ErrCacheMiss, "caller-observed version mismatch is a miss")

	got, err := cache.GetValidated(ctx, 7, 0)
	require.NoError(t, err)
	assert.NotNil(t, got, "zero skips the caller-side check")
}

func TestInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testPayload(7, 1)))
	require.NoError(t, cache.Invalidate(ctx, 7))

	_, err := cache.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Idempotent on absent keys.
	require.NoError(t, cache.Invalidate(ctx, 7))
}

func TestInvalidateAll(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	for userID := int64(1); userID <= 20; userID++ {
		require.NoError(t, cache.Set(ctx, testPayload(userID, 1)))
	}
	require.NoError(t, cache.InvalidateAll(ctx))

	for userID := int64(1); userID <= 20; userID++ {
		_, err := cache.Get(ctx, userID)
		assert.ErrorIs(t, err, ErrCacheMiss)
	}

	// Version counters survive a bulk clear.
	ver, err := cache.Version(ctx, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ver, int64(1))
}

func TestStoreOutageDegradesToMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testPayload(7, 1)))
	mr.Close()

	_, err := cache.Get(ctx, 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	_, err = cache.Version(ctx, 7)
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)

	err = cache.Set(ctx, testPayload(7, 2))
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}

func TestNilCacheIsMissAndNoop(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	_, err := cache.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, cache.Set(ctx, testPayload(7, 1)))
	assert.NoError(t, cache.Invalidate(ctx, 7))
	assert.NoError(t, cache.InvalidateAll(ctx))
	_, err = cache.Version(ctx, 7)
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}
