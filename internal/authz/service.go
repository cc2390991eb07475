package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/atheneum-lms/atheneum/internal/audit"
	"github.com/atheneum-lms/atheneum/internal/departments"
	"github.com/atheneum-lms/atheneum/internal/escalation"
	"github.com/atheneum-lms/atheneum/internal/observability"
	"github.com/atheneum-lms/atheneum/internal/permissions"
	"github.com/atheneum-lms/atheneum/internal/rights"
	"github.com/atheneum-lms/atheneum/internal/roles"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// PermissionsSource serves effective permissions and the invalidation hooks.
type PermissionsSource interface {
	EffectiveFor(ctx context.Context, userID, expectedVersion int64) (*permissions.EffectivePermissions, error)
	Invalidate(ctx context.Context, userID int64) error
	BumpVersion(ctx context.Context, userID int64) (int64, error)
}

// EscalationSource validates admin escalation tokens.
type EscalationSource interface {
	Validate(ctx context.Context, token string) (*escalation.Session, error)
}

// MembershipSource reads a user's department memberships.
type MembershipSource interface {
	MembershipsForUser(ctx context.Context, userID int64) ([]roles.DepartmentMembership, error)
}

// HierarchySource answers department reachability questions.
type HierarchySource interface {
	Ancestors(ctx context.Context, id int64) []int64
}

// DepartmentSource reads single departments.
type DepartmentSource interface {
	Get(ctx context.Context, id int64) (*departments.Department, error)
}

// Service is the decision point the enforcement guards and external callers
// consume. Boolean checks fail closed on every internal error: a check that
// cannot complete reports "not permitted", it never reports an error that a
// caller might misread as "allow".
type Service struct {
	permissions PermissionsSource
	escalations EscalationSource
	memberships MembershipSource
	hierarchy   HierarchySource
	departments DepartmentSource
	recorder    audit.Recorder
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewService constructs a Service. The recorder and metrics may be nil.
func NewService(
	perms PermissionsSource,
	escalations EscalationSource,
	memberships MembershipSource,
	hierarchy HierarchySource,
	depts DepartmentSource,
	recorder audit.Recorder,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{
		permissions: perms,
		escalations: escalations,
		memberships: memberships,
		hierarchy:   hierarchy,
		departments: depts,
		recorder:    recorder,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckAccessRight reports whether the identity holds the required rights
// under the given mode. Rights are gathered from every source the identity
// carries: the global set, every department set, and, when a valid
// escalation token is present, the admin set.
func (s *Service) CheckAccessRight(ctx context.Context, identity shared.Identity, required []string, mode Mode) bool {
	if !identity.Authenticated {
		s.observe("rights", "denied")
		return false
	}

	sources := s.gatherSources(ctx, identity)
	granted := make([][]string, 0, len(sources))
	for _, src := range sources {
		granted = append(granted, src.rights)
	}
	merged := rights.Union(granted...)

	var allowed bool
	switch mode {
	case ModeAll:
		allowed = rights.HasAll(merged, required)
	default:
		allowed = rights.HasAny(merged, required)
	}

	s.record(ctx, identity.UserID, "rights", allowed, strings.Join(required, ","), sources)
	return allowed
}

// CheckAdminRole reports whether the identity holds a valid escalation for at
// least one of the required admin roles. No escalation and an expired
// escalation are indistinguishable here: both deny.
func (s *Service) CheckAdminRole(ctx context.Context, identity shared.Identity, requiredRoles []string) bool {
	session, err := s.escalations.Validate(ctx, identity.EscalationToken)
	if err != nil {
		s.record(ctx, identity.UserID, "admin_role", false, strings.Join(requiredRoles, ","), nil)
		return false
	}

	allowed := len(requiredRoles) == 0
	for _, required := range requiredRoles {
		for _, held := range session.AdminRoles {
			if strings.EqualFold(held, required) {
				allowed = true
				break
			}
		}
	}
	s.record(ctx, identity.UserID, "admin_role", allowed, strings.Join(requiredRoles, ","), []grantSource{
		{name: "escalation", rights: session.AdminRoles},
	})
	return allowed
}

// CheckDepartmentMembership confirms the identity may act within the target
// department, directly or through a cascading ancestor membership. On denial
// the returned error wraps shared.ErrDenied.
func (s *Service) CheckDepartmentMembership(ctx context.Context, identity shared.Identity, departmentID int64) (*MembershipInfo, error) {
	if !identity.Authenticated {
		return nil, shared.ErrUnauthorized
	}

	dept, err := s.departments.Get(ctx, departmentID)
	if err != nil {
		s.record(ctx, identity.UserID, "department", false, strconv.FormatInt(departmentID, 10), nil)
		return nil, fmt.Errorf("authz: department %d: %w", departmentID, shared.ErrDenied)
	}

	memberships, err := s.memberships.MembershipsForUser(ctx, identity.UserID)
	if err != nil {
		s.logger.Warn("membership lookup failed, denying",
			slog.Int64("user_id", identity.UserID), slog.Any("error", err))
		s.record(ctx, identity.UserID, "department", false, strconv.FormatInt(departmentID, 10), nil)
		return nil, fmt.Errorf("authz: memberships unavailable: %w", shared.ErrDenied)
	}

	byDepartment := make(map[int64]roles.DepartmentMembership, len(memberships))
	for _, m := range memberships {
		byDepartment[m.DepartmentID] = m
	}

	if m, ok := byDepartment[departmentID]; ok {
		info := &MembershipInfo{Roles: m.Roles, IsCascaded: false, Level: dept.Level}
		s.record(ctx, identity.UserID, "department", true, strconv.FormatInt(departmentID, 10), nil)
		return info, nil
	}

	if !dept.RequireExplicitMembership {
		// Cascading access: membership in any ancestor flows down. Walk the
		// ancestor chain nearest-first so the closest membership wins.
		for _, ancestorID := range s.hierarchy.Ancestors(ctx, departmentID)[1:] {
			if m, ok := byDepartment[ancestorID]; ok {
				info := &MembershipInfo{Roles: m.Roles, IsCascaded: true, Level: dept.Level}
				s.record(ctx, identity.UserID, "department", true, strconv.FormatInt(departmentID, 10), nil)
				return info, nil
			}
		}
	}

	s.record(ctx, identity.UserID, "department", false, strconv.FormatInt(departmentID, 10), nil)
	return nil, fmt.Errorf("authz: no membership path to department %d: %w", departmentID, shared.ErrDenied)
}

// CheckEscalation validates an admin token and returns the escalated roles
// and rights. Denial reasons collapse into shared.ErrUnauthorized.
func (s *Service) CheckEscalation(ctx context.Context, token string) (*EscalationInfo, error) {
	session, err := s.escalations.Validate(ctx, token)
	if err != nil {
		s.observe("escalation", "denied")
		if errors.Is(err, shared.ErrUnauthorized) {
			return nil, err
		}
		return nil, shared.ErrUnauthorized
	}
	s.observe("escalation", "allowed")
	return &EscalationInfo{
		AdminRoles:        session.AdminRoles,
		AdminAccessRights: session.AdminAccessRights,
		ExpiresAt:         session.ExpiresAt,
	}, nil
}

// InvalidateUserPermissions drops the user's cached permission payload.
// External components call this after mutating roles, memberships or
// department structure.
func (s *Service) InvalidateUserPermissions(ctx context.Context, userID int64) error {
	return s.permissions.Invalidate(ctx, userID)
}

// BumpUserPermissionVersion marks every cached payload for the user stale
// and returns the new version for the caller to embed in its session.
func (s *Service) BumpUserPermissionVersion(ctx context.Context, userID int64) (int64, error) {
	return s.permissions.BumpVersion(ctx, userID)
}

func (s *Service) gatherSources(ctx context.Context, identity shared.Identity) []grantSource {
	var sources []grantSource

	ep, err := s.permissions.EffectiveFor(ctx, identity.UserID, identity.PermissionVersion)
	if err != nil {
		s.logger.Warn("effective permissions unavailable",
			slog.Int64("user_id", identity.UserID), slog.Any("error", err))
	} else {
		sources = append(sources, grantSource{name: "global", rights: ep.GlobalRights})
		for deptID, deptRights := range ep.DepartmentRights {
			sources = append(sources, grantSource{
				name:   "department:" + strconv.FormatInt(deptID, 10),
				rights: deptRights,
			})
		}
	}

	if identity.EscalationToken != "" {
		if session, err := s.escalations.Validate(ctx, identity.EscalationToken); err == nil {
			sources = append(sources, grantSource{name: "escalation", rights: session.AdminAccessRights})
		}
	}
	return sources
}

func (s *Service) record(ctx context.Context, actorID int64, guard string, allowed bool, requirement string, sources []grantSource) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	s.observe(guard, outcome)

	if !allowed {
		// The missing requirement is logged server-side only; the response a
		// client sees stays generic to avoid right enumeration.
		s.logger.Warn("authorization denied",
			slog.Int64("user_id", actorID),
			slog.String("guard", guard),
			slog.String("requirement", requirement))
	}

	meta := map[string]any{}
	for _, src := range sources {
		meta[src.name] = src.rights
	}
	if err := s.recorder.Record(ctx, audit.Decision{
		ActorID:     actorID,
		Guard:       guard,
		Outcome:     outcome,
		Requirement: requirement,
		Meta:        meta,
	}); err != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}

func (s *Service) observe(guard, decision string) {
	if s.metrics != nil {
		s.metrics.ObserveAuthzDecision(guard, decision)
	}
}
