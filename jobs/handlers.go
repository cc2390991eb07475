package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/atheneum-lms/atheneum/internal/jobs"
)

// PermissionInvalidator is the slice of the permission service the worker
// needs.
type PermissionInvalidator interface {
	Invalidate(ctx context.Context, userID int64) error
	InvalidateAll(ctx context.Context) error
}

// CatalogRefresher reloads the validation catalog.
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
}

// NewInvalidateAllHandler processes TaskPermissionsInvalidateAll tasks.
func NewInvalidateAllHandler(perms PermissionInvalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track(TaskPermissionsInvalidateAll)
		if err := perms.InvalidateAll(ctx); err != nil {
			logger.Error("invalidate all permissions", slog.Any("error", err))
			return tracker.End(err)
		}
		logger.Info("invalidated all cached permissions", slog.String("job", TaskPermissionsInvalidateAll))
		return tracker.End(nil)
	}
}

// NewInvalidateUserHandler processes TaskPermissionsInvalidateUser tasks.
func NewInvalidateUserHandler(perms PermissionInvalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload InvalidateUserPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track(TaskPermissionsInvalidateUser)
		if err := perms.Invalidate(ctx, payload.UserID); err != nil {
			logger.Error("invalidate user permissions",
				slog.Int64("user_id", payload.UserID), slog.Any("error", err))
			return tracker.End(err)
		}
		return tracker.End(nil)
	}
}

// NewLookupRefreshHandler processes TaskLookupRefresh tasks.
func NewLookupRefreshHandler(registry CatalogRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track(TaskLookupRefresh)
		if err := registry.Refresh(ctx); err != nil {
			logger.Error("lookup refresh", slog.Any("error", err))
			return tracker.End(err)
		}
		logger.Info("refreshed validation catalog", slog.String("job", TaskLookupRefresh))
		return tracker.End(nil)
	}
}
