package permissions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/atheneum-lms/atheneum/internal/observability"
	"github.com/atheneum-lms/atheneum/internal/roles"
)

// RightsSource resolves a user's role assignments into right sets.
type RightsSource interface {
	UserRights(ctx context.Context, userID int64) (*roles.UserRights, error)
}

// HierarchySource resolves a department into its descendant set.
type HierarchySource interface {
	Descendants(ctx context.Context, id int64) map[int64]struct{}
}

// Service is the read-through layer over the permission cache. On a miss or
// stale version it recomputes through the resolver and writes back; when the
// cache store is down it computes directly, so a check is slower but never
// wrong. Concurrent misses for one user inside the process collapse through
// singleflight; cross-process races recompute redundantly, which is safe
// because computation is deterministic over the same role data.
type Service struct {
	cache     *Cache
	resolver  RightsSource
	hierarchy HierarchySource
	logger    *slog.Logger
	metrics   *observability.Metrics
	group     singleflight.Group
}

// NewService constructs a Service. The metrics collector may be nil.
func NewService(cache *Cache, resolver RightsSource, hierarchy HierarchySource, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:     cache,
		resolver:  resolver,
		hierarchy: hierarchy,
		logger:    logger,
		metrics:   metrics,
	}
}

// EffectiveFor returns the user's effective permissions, serving from cache
// when a payload matching both the authoritative counter and the caller's
// observed version exists. expectedVersion zero skips the caller-side check.
func (s *Service) EffectiveFor(ctx context.Context, userID, expectedVersion int64) (*EffectivePermissions, error) {
	payload, err := s.cache.GetValidated(ctx, userID, expectedVersion)
	if err == nil {
		s.observeCache("hit")
		return payload, nil
	}
	switch {
	case errors.Is(err, ErrCacheMiss):
		s.observeCache("miss")
	default:
		s.observeCache("degraded")
		s.logger.Warn("permission cache unavailable, computing directly",
			slog.Int64("user_id", userID), slog.Any("error", err))
	}

	result, err, _ := s.recompute(ctx, userID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Compute resolves the user's permissions from the role and department
// stores, bypassing the cache entirely.
func (s *Service) Compute(ctx context.Context, userID int64) (*EffectivePermissions, error) {
	// The counter is read before the stores. A bump landing while rights
	// resolve then leaves the stored payload trailing the counter, so the
	// next validated read misses instead of serving pre-bump rights under a
	// post-bump version.
	var version int64
	if ver, err := s.cache.Version(ctx, userID); err == nil {
		version = ver
	} else {
		// Version counter unreachable: the payload stays valid for this
		// request but is written nowhere, so nothing stale can persist.
		s.logger.Warn("permission version unavailable", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	ur, err := s.resolver.UserRights(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("permissions: compute %d: %w", userID, err)
	}

	payload := &EffectivePermissions{
		UserID:              userID,
		GlobalRights:        ur.Global,
		DepartmentRights:    ur.ByDepartment,
		DepartmentHierarchy: make(map[int64][]int64, len(ur.Memberships)),
		ComputedAt:          time.Now(),
		Version:             version,
	}
	for _, m := range ur.Memberships {
		descendants := s.hierarchy.Descendants(ctx, m.DepartmentID)
		ids := make([]int64, 0, len(descendants))
		for id := range descendants {
			ids = append(ids, id)
		}
		payload.DepartmentHierarchy[m.DepartmentID] = ids
	}
	return payload, nil
}

// Invalidate drops the user's cached payload.
func (s *Service) Invalidate(ctx context.Context, userID int64) error {
	return s.cache.Invalidate(ctx, userID)
}

// InvalidateAll drops every cached payload. Called from the background sweep
// after role-definition edits.
func (s *Service) InvalidateAll(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}

// BumpVersion increments the user's version counter, marking every cached
// payload for that user stale, and returns the new version.
func (s *Service) BumpVersion(ctx context.Context, userID int64) (int64, error) {
	return s.cache.IncrementVersion(ctx, userID)
}

func (s *Service) recompute(ctx context.Context, userID int64) (*EffectivePermissions, error, bool) {
	value, err, shared := s.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		payload, err := s.Compute(ctx, userID)
		if err != nil {
			return nil, err
		}
		if payload.Version != 0 {
			if err := s.cache.Set(ctx, payload); err != nil {
				s.logger.Warn("permission cache write failed",
					slog.Int64("user_id", userID), slog.Any("error", err))
			}
		}
		return payload, nil
	})
	if err != nil {
		return nil, err, shared
	}
	return value.(*EffectivePermissions), nil, shared
}

func (s *Service) observeCache(result string) {
	if s.metrics != nil {
		s.metrics.ObservePermissionCache(result)
	}
}
