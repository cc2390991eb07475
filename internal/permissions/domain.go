package permissions

import "time"

// EffectivePermissions is the cached payload of everything a user may do:
// the fully resolved union of global and per-department rights, plus the
// department subtree visible through each membership. Wildcards are already
// expanded; consumers match against concrete rights only.
type EffectivePermissions struct {
	UserID       int64              `json:"userId"`
	GlobalRights []string           `json:"globalRights"`
	// DepartmentRights maps a membership department to the rights granted by
	// the roles held there.
	DepartmentRights map[int64][]string `json:"departmentRights"`
	// DepartmentHierarchy maps a membership department to its descendant ids,
	// the departments the membership cascades into.
	DepartmentHierarchy map[int64][]int64 `json:"departmentHierarchy"`
	ComputedAt          time.Time         `json:"computedAt"`
	ExpiresAt           time.Time         `json:"expiresAt"`
	// Version is the per-user version counter value at compute time. A
	// payload whose version trails the counter is stale even inside its TTL.
	Version int64 `json:"version"`
}

// AllRights returns the union of global and department rights. Department
// provenance is lost; callers that need it read the maps directly.
func (ep *EffectivePermissions) AllRights() []string {
	seen := make(map[string]struct{}, len(ep.GlobalRights))
	out := make([]string, 0, len(ep.GlobalRights))
	for _, r := range ep.GlobalRights {
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	for _, rights := range ep.DepartmentRights {
		for _, r := range rights {
			if _, ok := seen[r]; !ok {
				seen[r] = struct{}{}
				out = append(out, r)
			}
		}
	}
	return out
}

// MembershipDepartments returns the departments the user belongs to
// directly.
func (ep *EffectivePermissions) MembershipDepartments() []int64 {
	out := make([]int64, 0, len(ep.DepartmentRights))
	for id := range ep.DepartmentRights {
		out = append(out, id)
	}
	return out
}
