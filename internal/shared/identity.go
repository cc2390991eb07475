package shared

// Identity describes the authenticated actor for a single request. It is
// assembled from the session by the middleware stack and carried through
// context to the authorization guards.
type Identity struct {
	UserID int64
	// UserType is the lookup category key (e.g. "staff", "student").
	UserType string
	// Authenticated reports whether the identity was established by the
	// session layer. A zero Identity is unauthenticated.
	Authenticated bool
	// PermissionVersion is the per-user permission version the session last
	// observed. A cached permission payload with a different version is
	// treated as stale.
	PermissionVersion int64
	// EscalationToken, when present, is the admin escalation token supplied
	// with the request. Validation happens in the escalation service; carrying
	// the raw token here keeps the guards free of header parsing.
	EscalationToken string
}
