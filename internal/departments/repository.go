package departments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Repository reads departments from the system of record.
type Repository interface {
	Get(ctx context.Context, id int64) (*Department, error)
	Children(ctx context.Context, id int64) ([]Department, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const departmentColumns = `id, parent_department_id, path, level, is_system, is_visible, require_explicit_membership, is_active`

// Get fetches an active department by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Department, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+departmentColumns+`
		FROM departments
		WHERE id = $1 AND is_active`, id)
	dept, err := scanDepartment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("departments: %d: %w", id, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("departments: get %d: %w", id, err)
	}
	return dept, nil
}

// Children returns the active direct children of a department.
func (r *PGRepository) Children(ctx context.Context, id int64) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+departmentColumns+`
		FROM departments
		WHERE parent_department_id = $1 AND is_active
		ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("departments: children %d: %w", id, err)
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("departments: scan child: %w", err)
		}
		out = append(out, *dept)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("departments: rows: %w", err)
	}
	return out, nil
}

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	if err := row.Scan(&d.ID, &d.ParentDepartmentID, &d.Path, &d.Level, &d.IsSystem, &d.IsVisible, &d.RequireExplicitMembership, &d.IsActive); err != nil {
		return nil, err
	}
	return &d, nil
}
