package lookup

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads lookup rows from the system of record.
type Repository interface {
	ListActive(ctx context.Context) ([]Value, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListActive returns all active lookup values ordered by sort order. Rows
// sharing a sort order keep table order, which the registry preserves as the
// tie break.
func (r *PGRepository) ListActive(ctx context.Context) ([]Value, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT lookup_id, category, key, COALESCE(parent_lookup_id, ''), display_as, is_active, sort_order
		FROM lookup_values
		WHERE is_active
		ORDER BY sort_order, lookup_id`)
	if err != nil {
		return nil, fmt.Errorf("lookup: list active: %w", err)
	}
	defer rows.Close()

	var values []Value
	for rows.Next() {
		var v Value
		var category string
		if err := rows.Scan(&v.LookupID, &category, &v.Key, &v.ParentLookupID, &v.DisplayAs, &v.IsActive, &v.SortOrder); err != nil {
			return nil, fmt.Errorf("lookup: scan: %w", err)
		}
		v.Category = Category(category)
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup: rows: %w", err)
	}
	return values, nil
}
