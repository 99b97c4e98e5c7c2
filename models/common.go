package models

// PageData represents common data passed to templates
type PageData struct {
	Title string
	Error string
	Debug string
	User  *UserProfile

	// Activity is the signed-in user's recent audit trail
	Activity []AuditLogEntry
}
