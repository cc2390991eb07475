package escalation

import "time"

// Session is a short-lived elevated-privilege context, distinct from the
// normal login session: its own roles, its own rights, its own expiry. It is
// consulted only by escalation-gated checks and never renews on ordinary
// request activity.
type Session struct {
	UserID            int64     `json:"userId"`
	AdminRoles        []string  `json:"adminRoles"`
	AdminAccessRights []string  `json:"adminAccessRights"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

// AdminAccount is the elevated counterpart of a user account. Elevation
// re-verifies the password against this record; a disabled account fails
// closed even when a stored token still looks valid.
type AdminAccount struct {
	UserID       int64
	PasswordHash string
	AdminRoles   []string
	// SessionTimeout overrides the default escalation lifetime when positive.
	SessionTimeout time.Duration
	IsEnabled      bool
}
