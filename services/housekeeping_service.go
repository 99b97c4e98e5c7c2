package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/blogem/oauth-login/repositories"
)

// Defaults used when the caller passes a zero value
const (
	DefaultHousekeepingInterval = 5 * time.Minute
	DefaultAuditRetention       = 30 * 24 * time.Hour
)

// HousekeepingService periodically deletes expired flow states and old
// audit entries so neither table grows without bound.
type HousekeepingService struct {
	FlowStates     repositories.FlowStateRepository
	Audit          repositories.AuditRepository
	Logger         *slog.Logger
	Interval       time.Duration
	AuditRetention time.Duration

	now    func() time.Time
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval
func NewHousekeepingService(flowStates repositories.FlowStateRepository, audit repositories.AuditRepository, logger *slog.Logger, interval, auditRetention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	if auditRetention <= 0 {
		auditRetention = DefaultAuditRetention
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		FlowStates:     flowStates,
		Audit:          audit,
		Logger:         logger,
		Interval:       interval,
		AuditRetention: auditRetention,
		now:            time.Now,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down and waits for an in-progress cleanup to finish
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each deletion is independent; a failure in one does
// not skip the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := s.now()

	if s.FlowStates != nil {
		deleted, err := s.FlowStates.DeleteExpired(ctx, now)
		if err != nil {
			s.Logger.Error("failed to delete expired flow states", "error", err)
		} else if deleted > 0 {
			s.Logger.Info("deleted expired flow states", "count", deleted)
		}
	}

	if s.Audit != nil {
		deleted, err := s.Audit.DeleteOlderThan(ctx, now.Add(-s.AuditRetention))
		if err != nil {
			s.Logger.Error("failed to delete old audit entries", "error", err)
		} else if deleted > 0 {
			s.Logger.Info("deleted old audit entries", "count", deleted)
		}
	}
}
