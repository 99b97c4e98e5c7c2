package services

import (
	"context"
	"time"

	"github.com/blogem/oauth-login/logging"
	"github.com/blogem/oauth-login/models"
	"github.com/blogem/oauth-login/repositories"
)

// RequestMeta describes who made the request being audited
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuditService records sign in activity
type AuditService interface {
	LoginStarted(ctx context.Context, attemptID string, meta RequestMeta)
	LoginCompleted(ctx context.Context, attemptID, email string, meta RequestMeta)
	LoginFailed(ctx context.Context, attemptID, outcome string, meta RequestMeta)
	Logout(ctx context.Context, email string, meta RequestMeta)
	RecentActivity(ctx context.Context, email string, limit int) ([]models.AuditLogEntry, error)
}

type auditService struct {
	auditRepo repositories.AuditRepository
	now       func() time.Time
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo repositories.AuditRepository) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		now:       time.Now,
	}
}

func (s *auditService) LoginStarted(ctx context.Context, attemptID string, meta RequestMeta) {
	s.record(ctx, models.AuditLoginStarted, attemptID, "", "pending", meta)
}

func (s *auditService) LoginCompleted(ctx context.Context, attemptID, email string, meta RequestMeta) {
	s.record(ctx, models.AuditLoginCompleted, attemptID, email, "success", meta)
}

func (s *auditService) LoginFailed(ctx context.Context, attemptID, outcome string, meta RequestMeta) {
	s.record(ctx, models.AuditLoginFailed, attemptID, "", outcome, meta)
}

func (s *auditService) Logout(ctx context.Context, email string, meta RequestMeta) {
	s.record(ctx, models.AuditLogout, "", email, "success", meta)
}

// RecentActivity returns the user's latest audit entries, newest first
func (s *auditService) RecentActivity(ctx context.Context, email string, limit int) ([]models.AuditLogEntry, error) {
	if email == "" {
		return nil, nil
	}
	return s.auditRepo.ListByUser(ctx, email, limit)
}

// record writes the entry. An audit failure never fails the request, so
// errors are logged only.
func (s *auditService) record(ctx context.Context, event, attemptID, email, outcome string, meta RequestMeta) {
	entry := &models.AuditLogEntry{
		Timestamp: s.now(),
		Event:     event,
		AttemptID: attemptID,
		UserEmail: email,
		Outcome:   outcome,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
	}

	if err := s.auditRepo.Create(context.WithoutCancel(ctx), entry); err != nil {
		logging.FromContext(ctx).Error("failed to create audit log",
			"event", event,
			"attempt_id", attemptID,
			"error", err,
		)
	}
}
