package domain

import "time"

// AuditEntry is a persisted record of an auth event (sign-in, sign-out,
// token refresh, gate denial). Entries for the same identity are ordered.
type AuditEntry struct {
	ID         string        `json:"id"`
	IdentityID string        `json:"identity_id"`
	Kind       AuthEventKind `json:"kind"`
	Detail     string        `json:"detail,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}
