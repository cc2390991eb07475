package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Repository reads role definitions and membership assignments.
type Repository interface {
	GetRole(ctx context.Context, name string) (*RoleDefinition, error)
	ListRoles(ctx context.Context) ([]RoleDefinition, error)
	// ListRights returns the full catalog of concrete (non-wildcard) rights
	// known to the platform, used for wildcard expansion.
	ListRights(ctx context.Context) ([]string, error)
	MembershipsForUser(ctx context.Context, userID int64) ([]DepartmentMembership, error)
	// GlobalRolesForUser returns department-independent platform roles.
	GlobalRolesForUser(ctx context.Context, userID int64) ([]string, error)
	UpdateRoleRights(ctx context.Context, name string, accessRights []string) (*RoleDefinition, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetRole fetches an active role definition by name.
func (r *PGRepository) GetRole(ctx context.Context, name string) (*RoleDefinition, error) {
	var def RoleDefinition
	err := r.pool.QueryRow(ctx, `
		SELECT name, access_rights, is_active
		FROM role_definitions
		WHERE name = $1 AND is_active`, name).
		Scan(&def.Name, &def.AccessRights, &def.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("roles: %q: %w", name, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("roles: get %q: %w", name, err)
	}
	return &def, nil
}

// ListRoles returns all active role definitions ordered by name.
func (r *PGRepository) ListRoles(ctx context.Context) ([]RoleDefinition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, access_rights, is_active
		FROM role_definitions
		WHERE is_active
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	defer rows.Close()

	var defs []RoleDefinition
	for rows.Next() {
		var def RoleDefinition
		if err := rows.Scan(&def.Name, &def.AccessRights, &def.IsActive); err != nil {
			return nil, fmt.Errorf("roles: scan: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roles: rows: %w", err)
	}
	return defs, nil
}

// ListRights returns the concrete right catalog.
func (r *PGRepository) ListRights(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM access_rights WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("roles: list rights: %w", err)
	}
	defer rows.Close()

	var rights []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("roles: scan right: %w", err)
		}
		rights = append(rights, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roles: rows: %w", err)
	}
	return rights, nil
}

// MembershipsForUser returns the user's department memberships with their
// role sets.
func (r *PGRepository) MembershipsForUser(ctx context.Context, userID int64) ([]DepartmentMembership, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT department_id, roles, is_primary
		FROM department_memberships
		WHERE user_id = $1
		ORDER BY department_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("roles: memberships for %d: %w", userID, err)
	}
	defer rows.Close()

	var memberships []DepartmentMembership
	for rows.Next() {
		var m DepartmentMembership
		if err := rows.Scan(&m.DepartmentID, &m.Roles, &m.IsPrimary); err != nil {
			return nil, fmt.Errorf("roles: scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roles: rows: %w", err)
	}
	return memberships, nil
}

// GlobalRolesForUser returns platform-wide roles not tied to a department.
func (r *PGRepository) GlobalRolesForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT role_name
		FROM global_role_assignments
		WHERE user_id = $1
		ORDER BY role_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("roles: global roles for %d: %w", userID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("roles: scan role name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roles: rows: %w", err)
	}
	return names, nil
}

// UpdateRoleRights replaces the right set of a role definition.
func (r *PGRepository) UpdateRoleRights(ctx context.Context, name string, accessRights []string) (*RoleDefinition, error) {
	var def RoleDefinition
	err := r.pool.QueryRow(ctx, `
		UPDATE role_definitions
		SET access_rights = $2, updated_at = now()
		WHERE name = $1 AND is_active
		RETURNING name, access_rights, is_active`, name, accessRights).
		Scan(&def.Name, &def.AccessRights, &def.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("roles: %q: %w", name, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("roles: update %q: %w", name, err)
	}
	return &def, nil
}
