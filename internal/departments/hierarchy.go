package departments

import (
	"context"
	"log/slog"
)

// Hierarchy resolves a department to its subtree or its ancestor chain.
// Traversal tolerates malformed data: cycles are cut by a visited set and a
// store error degrades to the nodes gathered so far, never below the
// requested department itself. The methods therefore return no error; they
// sit on the authorization hot path where a failure must read as "less
// access", not as a crash.
type Hierarchy struct {
	repo   Repository
	logger *slog.Logger
}

// NewHierarchy constructs a Hierarchy.
func NewHierarchy(repo Repository, logger *slog.Logger) *Hierarchy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hierarchy{repo: repo, logger: logger}
}

// Descendants returns the department itself plus every department reachable
// downward, breadth-first.
func (h *Hierarchy) Descendants(ctx context.Context, id int64) map[int64]struct{} {
	visited := map[int64]struct{}{id: {}}
	queue := []int64{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		children, err := h.repo.Children(ctx, current)
		if err != nil {
			h.logger.Warn("department descent degraded",
				slog.Int64("department_id", current), slog.Any("error", err))
			continue
		}
		for _, child := range children {
			if _, seen := visited[child.ID]; seen {
				continue
			}
			visited[child.ID] = struct{}{}
			queue = append(queue, child.ID)
		}
	}
	return visited
}

// Ancestors walks upward from the department to the root, inclusive, ordered
// self first.
func (h *Hierarchy) Ancestors(ctx context.Context, id int64) []int64 {
	chain := []int64{id}
	visited := map[int64]struct{}{id: {}}
	current := id
	for {
		dept, err := h.repo.Get(ctx, current)
		if err != nil {
			h.logger.Warn("department ascent degraded",
				slog.Int64("department_id", current), slog.Any("error", err))
			return chain
		}
		if dept.ParentDepartmentID == nil {
			return chain
		}
		parent := *dept.ParentDepartmentID
		if _, seen := visited[parent]; seen {
			h.logger.Warn("department parent cycle detected", slog.Int64("department_id", parent))
			return chain
		}
		visited[parent] = struct{}{}
		chain = append(chain, parent)
		current = parent
	}
}

// IsTopLevel reports whether the department has no parent. Fails closed on
// lookup error.
func (h *Hierarchy) IsTopLevel(ctx context.Context, id int64) bool {
	dept, err := h.repo.Get(ctx, id)
	if err != nil {
		return false
	}
	return dept.ParentDepartmentID == nil
}

// AccessibleDepartments is the scoping rule: a member of a department sees
// that department and all its subdepartments, and nothing else unless
// separately assigned. The result is the union of Descendants over the
// user's membership departments.
func (h *Hierarchy) AccessibleDepartments(ctx context.Context, memberDepartmentIDs []int64) map[int64]struct{} {
	accessible := make(map[int64]struct{})
	for _, id := range memberDepartmentIDs {
		for desc := range h.Descendants(ctx, id) {
			accessible[desc] = struct{}{}
		}
	}
	return accessible
}

// HasAccess reports whether the target department falls inside the user's
// accessible set. System-admin bypass is a global-rights decision made by
// the enforcement layer, not a hierarchy fact.
func (h *Hierarchy) HasAccess(ctx context.Context, memberDepartmentIDs []int64, targetID int64) bool {
	for _, id := range memberDepartmentIDs {
		if id == targetID {
			return true
		}
	}
	_, ok := h.AccessibleDepartments(ctx, memberDepartmentIDs)[targetID]
	return ok
}
