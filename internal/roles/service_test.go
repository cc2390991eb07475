package roles

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

type mockRepository struct {
	roles       map[string]*RoleDefinition
	rights      []string
	memberships map[int64][]DepartmentMembership
	globalRoles map[int64][]string

	rightsErr      error
	membershipsErr error
}

func (m *mockRepository) GetRole(ctx context.Context, name string) (*RoleDefinition, error) {
	def, ok := m.roles[name]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return def, nil
}

func (m *mockRepository) ListRoles(ctx context.Context) ([]RoleDefinition, error) {
	var out []RoleDefinition
	for _, def := range m.roles {
		out = append(out, *def)
	}
	return out, nil
}

func (m *mockRepository) ListRights(ctx context.Context) ([]string, error) {
	if m.rightsErr != nil {
		return nil, m.rightsErr
	}
	return m.rights, nil
}

func (m *mockRepository) MembershipsForUser(ctx context.Context, userID int64) ([]DepartmentMembership, error) {
	if m.membershipsErr != nil {
		return nil, m.membershipsErr
	}
	return m.memberships[userID], nil
}

func (m *mockRepository) GlobalRolesForUser(ctx context.Context, userID int64) ([]string, error) {
	return m.globalRoles[userID], nil
}

func (m *mockRepository) UpdateRoleRights(ctx context.Context, name string, accessRights []string) (*RoleDefinition, error) {
	def, ok := m.roles[name]
	if !ok {
		return nil, shared.ErrNotFound
	}
	def.AccessRights = accessRights
	return def, nil
}

func newMockRepo() *mockRepository {
	return &mockRepository{
		roles: map[string]*RoleDefinition{
			"instructor": {
				Name:         "instructor",
				AccessRights: []string{"content:courses:read", "grades:entries:read"},
				IsActive:     true,
			},
			"content-admin": {
				Name:         "content-admin",
				AccessRights: []string{"content:*"},
				IsActive:     true,
			},
			"registrar": {
				Name:         "registrar",
				AccessRights: []string{"enroll:seats:add", "enroll:seats:remove"},
				IsActive:     true,
			},
		},
		rights: []string{
			"content:courses:read",
			"content:courses:write",
			"content:modules:read",
			"grades:entries:read",
			"enroll:seats:add",
			"enroll:seats:remove",
		},
		memberships: map[int64][]DepartmentMembership{},
		globalRoles: map[int64][]string{},
	}
}

func newResolver(repo Repository) *Resolver {
	return NewResolver(repo, slog.Default())
}

func TestRightsForRolesUnion(t *testing.T) {
	resolver := newResolver(newMockRepo())

	out := resolver.RightsForRoles(context.Background(), []string{"instructor", "registrar"})
	assert.ElementsMatch(t, []string{
		"content:courses:read",
		"grades:entries:read",
		"enroll:seats:add",
		"enroll:seats:remove",
	}, out)

	// Order independent.
	reversed := resolver.RightsForRoles(context.Background(), []string{"registrar", "instructor"})
	assert.ElementsMatch(t, out, reversed)
}

func TestRightsForRolesIdempotent(t *testing.T) {
	resolver := newResolver(newMockRepo())
	args := []string{"instructor", "content-admin"}

	first := resolver.RightsForRoles(context.Background(), args)
	second := resolver.RightsForRoles(context.Background(), args)
	assert.Equal(t, first, second)
}

func TestUnknownRoleContributesNothing(t *testing.T) {
	resolver := newResolver(newMockRepo())

	out := resolver.RightsForRoles(context.Background(), []string{"instructor", "no-such-role"})
	assert.ElementsMatch(t, []string{"content:courses:read", "grades:entries:read"}, out)

	assert.Empty(t, resolver.RightsForRole(context.Background(), "no-such-role"))
}

func TestExpandedRightsForRoles(t *testing.T) {
	resolver := newResolver(newMockRepo())

	out := resolver.ExpandedRightsForRoles(context.Background(), []string{"content-admin"})
	assert.ElementsMatch(t, []string{
		"content:courses:read",
		"content:courses:write",
		"content:modules:read",
	}, out)
}

func TestExpandDegradesWhenCatalogUnavailable(t *testing.T) {
	repo := newMockRepo()
	repo.rightsErr = errors.New("store down")
	resolver := newResolver(repo)

	out := resolver.ExpandedRightsForRoles(context.Background(), []string{"instructor", "content-admin"})
	// Wildcard entry is dropped, concrete entries survive.
	assert.ElementsMatch(t, []string{"content:courses:read", "grades:entries:read"}, out)
}

func TestUserRights(t *testing.T) {
	repo := newMockRepo()
	repo.memberships[7] = []DepartmentMembership{
		{DepartmentID: 1, Roles: []string{"instructor", "content-admin"}, IsPrimary: true},
		{DepartmentID: 5, Roles: []string{"registrar"}},
	}
	repo.globalRoles[7] = []string{"instructor"}
	resolver := newResolver(repo)

	ur, err := resolver.UserRights(context.Background(), 7)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"content:courses:read", "grades:entries:read"}, ur.Global)
	assert.ElementsMatch(t, []string{
		"content:courses:read",
		"content:courses:write",
		"content:modules:read",
		"grades:entries:read",
	}, ur.ByDepartment[1], "wildcards pre-expanded per department")
	assert.ElementsMatch(t, []string{"enroll:seats:add", "enroll:seats:remove"}, ur.ByDepartment[5])
	assert.Len(t, ur.Memberships, 2)
}

func TestUserRightsPropagatesMembershipError(t *testing.T) {
	repo := newMockRepo()
	repo.membershipsErr = errors.New("store down")
	resolver := newResolver(repo)

	_, err := resolver.UserRights(context.Background(), 7)
	require.Error(t, err)
}
