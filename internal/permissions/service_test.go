package permissions

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atheneum-lms/atheneum/internal/roles"
)

type stubResolver struct {
	mu       sync.Mutex
	rights   map[int64]*roles.UserRights
	err      error
	computes int
	// onResolve runs after the rights are read, before they are returned.
	// Lets a test land a concurrent mutation mid-compute.
	onResolve func()
}

func (s *stubResolver) UserRights(ctx context.Context, userID int64) (*roles.UserRights, error) {
	s.mu.Lock()
	s.computes++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	ur, ok := s.rights[userID]
	if !ok {
		return &roles.UserRights{ByDepartment: map[int64][]string{}}, nil
	}
	if s.onResolve != nil {
		s.onResolve()
	}
	return ur, nil
}

type stubHierarchy struct {
	descendants map[int64][]int64
}

func (s *stubHierarchy) Descendants(ctx context.Context, id int64) map[int64]struct{} {
	out := map[int64]struct{}{id: {}}
	for _, child := range s.descendants[id] {
		out[child] = struct{}{}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *stubResolver, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, 15*time.Minute)

	resolver := &stubResolver{
		rights: map[int64]*roles.UserRights{
			7: {
				Global: []string{"platform:departments:read"},
				ByDepartment: map[int64][]string{
					1: {"content:courses:read", "content:courses:write"},
				},
				Memberships: []roles.DepartmentMembership{{DepartmentID: 1, Roles: []string{"content-admin"}, IsPrimary: true}},
			},
		},
	}
	hierarchy := &stubHierarchy{descendants: map[int64][]int64{1: {2, 4}}}
	svc := NewService(cache, resolver, hierarchy, slog.Default(), nil)
	return svc, resolver, mr
}

func TestEffectiveForComputesAndCaches(t *testing.T) {
	svc, resolver, _ := newTestService(t)
	ctx := context.Background()

	got, err := svc.EffectiveFor(ctx, 7, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, []string{"platform:departments:read"}, got.GlobalRights)
	assert.ElementsMatch(t, []int64{1, 2, 4}, got.DepartmentHierarchy[1])
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, 1, resolver.computes)

	// Second call is served from cache.
	again, err := svc.EffectiveFor(ctx, 7, got.Version)
	require.NoError(t, err)
	assert.Equal(t, got.GlobalRights, again.GlobalRights)
	assert.Equal(t, 1, resolver.computes)
}

func TestEffectiveForRecomputesAfterBump(t *testing.T) {
	svc, resolver, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.EffectiveFor(ctx, 7, 0)
	require.NoError(t, err)

	newVer, err := svc.BumpVersion(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, first.Version+1, newVer)

	second, err := svc.EffectiveFor(ctx, 7, newVer)
	require.NoError(t, err)
	assert.Equal(t, newVer, second.Version)
	assert.Equal(t, 2, resolver.computes)
}

func TestBumpDuringRecomputeLeavesPayloadStale(t *testing.T) {
	svc, resolver, _ := newTestService(t)
	ctx := context.Background()

	// A role mutation commits and bumps the counter while the recompute is
	// between reading the counter and resolving rights. The payload written
	// by that recompute must trail the counter, not mask the bump.
	revoked := &roles.UserRights{
		Global: []string{"platform:departments:read"},
		ByDepartment: map[int64][]string{
			1: {"content:courses:read"},
		},
		Memberships: []roles.DepartmentMembership{{DepartmentID: 1, Roles: []string{"content-viewer"}, IsPrimary: true}},
	}
	resolver.onResolve = func() {
		resolver.onResolve = nil
		resolver.rights[7] = revoked
		_, err := svc.BumpVersion(ctx, 7)
		require.NoError(t, err)
	}

	first, err := svc.EffectiveFor(ctx, 7, 0)
	require.NoError(t, err)
	assert.Contains(t, first.DepartmentRights[1], "content:courses:write")
	assert.Equal(t, int64(1), first.Version, "stamped with the pre-bump counter value")

	// The next validated read sees version 1 against counter 2, misses, and
	// recomputes with the post-mutation rights.
	second, err := svc.EffectiveFor(ctx, 7, 2)
	require.NoError(t, err)
	assert.NotContains(t, second.DepartmentRights[1], "content:courses:write")
	assert.Equal(t, int64(2), second.Version)
	assert.Equal(t, 2, resolver.computes)
}

func TestEffectiveForRecomputesAfterInvalidate(t *testing.T) {
	svc, resolver, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.EffectiveFor(ctx, 7, 0)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx, 7))

	_, err = svc.EffectiveFor(ctx, 7, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, resolver.computes)
}

func TestEffectiveForDegradesWhenStoreDown(t *testing.T) {
	svc, resolver, mr := newTestService(t)
	ctx := context.Background()

	mr.Close()

	// Correct answer, computed directly, no error surfaced.
	got, err := svc.EffectiveFor(ctx, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"platform:departments:read"}, got.GlobalRights)
	assert.Equal(t, int64(0), got.Version, "no authoritative version available")
	assert.Equal(t, 1, resolver.computes)
}

func TestEffectiveForPropagatesResolverFailure(t *testing.T) {
	svc, resolver, _ := newTestService(t)
	resolver.err = errors.New("role store down")

	_, err := svc.EffectiveFor(context.Background(), 7, 0)
	require.Error(t, err, "no rights data at all fails closed, it never guesses")
}

func TestConcurrentMissesCollapse(t *testing.T) {
	svc, resolver, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.EffectiveFor(ctx, 7, 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	resolver.mu.Lock()
	computes := resolver.computes
	resolver.mu.Unlock()
	assert.Less(t, computes, 16, "singleflight collapses same-process misses")
}
