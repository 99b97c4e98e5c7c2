package repositories

import (
	"database/sql"
)

// Repositories struct holds all repository interfaces
type Repositories struct {
	FlowStates FlowStateRepository
	Audit      AuditRepository
}

// NewRepositories creates and initializes all repositories on SQLite
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		FlowStates: NewFlowStateRepository(db),
		Audit:      NewAuditRepository(db),
	}
}
