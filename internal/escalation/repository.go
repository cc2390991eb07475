package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// AccountRepository reads admin accounts.
type AccountRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*AdminAccount, error)
}

// PGAccountRepository provides PostgreSQL backed persistence.
type PGAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository constructs a repository.
func NewAccountRepository(pool *pgxpool.Pool) *PGAccountRepository {
	return &PGAccountRepository{pool: pool}
}

// FindByUserID fetches the admin account for a user.
func (r *PGAccountRepository) FindByUserID(ctx context.Context, userID int64) (*AdminAccount, error) {
	var account AdminAccount
	var timeoutMinutes int
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, password_hash, admin_roles, session_timeout_minutes, is_enabled
		FROM admin_accounts
		WHERE user_id = $1`, userID).
		Scan(&account.UserID, &account.PasswordHash, &account.AdminRoles, &timeoutMinutes, &account.IsEnabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("escalation: account %d: %w", userID, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("escalation: find account %d: %w", userID, err)
	}
	account.SessionTimeout = time.Duration(timeoutMinutes) * time.Minute
	return &account, nil
}
