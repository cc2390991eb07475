package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atheneum-lms/atheneum/internal/rights"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Resolver maps role names to access-right sets and merges rights across a
// user's memberships. An unknown or inactive role contributes zero rights
// and a warning; a single bad assignment degrades that role only, never the
// whole computation.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

// UserRights is the resolver output for one user: the department-independent
// global set and the per-department sets, both with wildcards pre-expanded.
type UserRights struct {
	Global       []string
	ByDepartment map[int64][]string
	Memberships  []DepartmentMembership
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{repo: repo, logger: logger}
}

// RightsForRole returns the rights granted by a single role, or nothing when
// the role is unknown.
func (s *Resolver) RightsForRole(ctx context.Context, role string) []string {
	def, err := s.repo.GetRole(ctx, role)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("unknown role contributes no rights", slog.String("role", role))
		} else {
			s.logger.Warn("role lookup degraded", slog.String("role", role), slog.Any("error", err))
		}
		return nil
	}
	return rights.Union(def.AccessRights)
}

// RightsForRoles returns the deduplicated union of rights across roles.
func (s *Resolver) RightsForRoles(ctx context.Context, roleNames []string) []string {
	sets := make([][]string, 0, len(roleNames))
	for _, role := range roleNames {
		sets = append(sets, s.RightsForRole(ctx, role))
	}
	return rights.Union(sets...)
}

// ExpandedRightsForRoles resolves roles to rights and pre-expands wildcard
// entries against the platform right catalog. When the catalog cannot be
// loaded the expansion degrades to the concrete entries only.
func (s *Resolver) ExpandedRightsForRoles(ctx context.Context, roleNames []string) []string {
	granted := s.RightsForRoles(ctx, roleNames)
	return s.expand(ctx, granted)
}

// UserRights computes the global and per-department right sets for a user.
// Wildcards are expanded here so the cached payload serves the hot path
// without matcher calls against the catalog.
func (s *Resolver) UserRights(ctx context.Context, userID int64) (*UserRights, error) {
	memberships, err := s.repo.MembershipsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("roles: resolve user %d: %w", userID, err)
	}
	globalRoles, err := s.repo.GlobalRolesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("roles: resolve user %d: %w", userID, err)
	}

	out := &UserRights{
		Global:       s.ExpandedRightsForRoles(ctx, globalRoles),
		ByDepartment: make(map[int64][]string, len(memberships)),
		Memberships:  memberships,
	}
	for _, m := range memberships {
		out.ByDepartment[m.DepartmentID] = s.ExpandedRightsForRoles(ctx, m.Roles)
	}
	return out, nil
}

func (s *Resolver) expand(ctx context.Context, granted []string) []string {
	hasWildcard := false
	for _, g := range granted {
		if rights.IsWildcard(g) {
			hasWildcard = true
			break
		}
	}
	if !hasWildcard {
		return granted
	}
	known, err := s.repo.ListRights(ctx)
	if err != nil {
		s.logger.Warn("right catalog unavailable, keeping concrete rights only", slog.Any("error", err))
		known = nil
	}
	return rights.ExpandWildcards(granted, known)
}
