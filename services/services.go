package services

import (
	"log/slog"
	"time"

	"github.com/blogem/oauth-login/repositories"
)

// Services holds all service instances
type Services struct {
	Audit        AuditService
	Housekeeping *HousekeepingService
}

// NewServices creates and initializes all service instances
func NewServices(repos *repositories.Repositories, logger *slog.Logger, housekeepingInterval, auditRetention time.Duration) *Services {
	return &Services{
		Audit:        NewAuditService(repos.Audit),
		Housekeeping: NewHousekeepingService(repos.FlowStates, repos.Audit, logger, housekeepingInterval, auditRetention),
	}
}
