package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPermissionsInvalidateAll drops every cached permission payload.
	// Enqueued after global mutations such as a role rights update.
	TaskPermissionsInvalidateAll = "permissions:invalidate_all"
	// TaskPermissionsInvalidateUser drops one user's cached payload.
	TaskPermissionsInvalidateUser = "permissions:invalidate_user"
	// TaskLookupRefresh reloads the validation catalog from the database.
	TaskLookupRefresh = "lookup:refresh"
)

// InvalidateUserPayload identifies the user whose cache entry is dropped.
type InvalidateUserPayload struct {
	UserID int64 `json:"userId"`
}

// NewInvalidateAllTask constructs the global invalidation task.
func NewInvalidateAllTask() *asynq.Task {
	return asynq.NewTask(TaskPermissionsInvalidateAll, nil)
}

// NewInvalidateUserTask constructs a per-user invalidation task.
func NewInvalidateUserTask(payload InvalidateUserPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPermissionsInvalidateUser, data), nil
}

// NewLookupRefreshTask constructs the catalog refresh task.
func NewLookupRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskLookupRefresh, nil)
}
