package authz

import "time"

// Mode selects how a multi-right requirement combines.
type Mode string

const (
	// ModeAny passes when at least one required right is granted.
	ModeAny Mode = "any"
	// ModeAll passes only when every required right is granted.
	ModeAll Mode = "all"
)

// MembershipInfo describes how an identity reaches a department.
type MembershipInfo struct {
	// Roles held in the department that granted access (the department
	// itself, or the ancestor the access cascades from).
	Roles []string `json:"roles"`
	// IsCascaded is true when access flows down from an ancestor membership
	// rather than a direct one.
	IsCascaded bool `json:"isCascaded"`
	// Level is the target department's depth, root = 0.
	Level int `json:"level"`
}

// EscalationInfo is the enforcement-layer view of a valid admin escalation.
type EscalationInfo struct {
	AdminRoles        []string  `json:"adminRoles"`
	AdminAccessRights []string  `json:"adminAccessRights"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

// grantSource tags a right set with where it came from, so denial logs and
// audit records keep provenance instead of a flattened string soup.
type grantSource struct {
	name   string
	rights []string
}
