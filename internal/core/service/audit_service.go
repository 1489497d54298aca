package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edusuite/platform/internal/api/metrics"
	"github.com/edusuite/platform/internal/core/domain"
	"github.com/edusuite/platform/internal/core/ports"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService persisting entries through the
// given repository.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record persists one auth event as an audit entry.
func (s *auditService) Record(ctx context.Context, event domain.AuthEvent) error {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	entry := &domain.AuditEntry{
		IdentityID: event.IdentityID,
		Kind:       event.Kind,
		Detail:     event.Detail,
		Timestamp:  ts,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		metrics.AuditErrorsTotal.Inc()
		return fmt.Errorf("record audit event: %w", err)
	}

	metrics.AuditEventsTotal.WithLabelValues(string(event.Kind)).Inc()
	return nil
}
