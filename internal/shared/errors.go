package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNotInitialized is returned by registry reads before Initialize succeeds.
	ErrNotInitialized = errors.New("registry not initialized")
	// ErrDenied indicates a valid request with insufficient rights or membership.
	ErrDenied = errors.New("access denied")
	// ErrUnauthorized indicates missing or invalid authentication or escalation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStoreUnavailable indicates the cache or lookup store cannot be reached.
	// It never surfaces to clients; callers degrade to direct computation or a
	// conservative default instead.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConfiguration indicates invalid startup configuration, such as a
	// malformed right-string or an empty lookup table. Fatal at startup.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidCredentials indicates elevation failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
