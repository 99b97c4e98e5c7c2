package models

import "time"

// Audit event names recorded for login attempts
const (
	AuditLoginStarted   = "login_started"
	AuditLoginCompleted = "login_completed"
	AuditLoginFailed    = "login_failed"
	AuditLogout         = "logout"
)

// AuditLogEntry represents a single authentication event
type AuditLogEntry struct {
	ID        int64
	Timestamp time.Time
	Event     string
	AttemptID string
	UserEmail string
	Outcome   string
	UserAgent string
	IPAddress string
}
