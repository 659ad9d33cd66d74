package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/docshare/identity-api/internal/api/metrics"
	"github.com/docshare/identity-api/internal/core/domain"
	"github.com/docshare/identity-api/internal/core/ports"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService persisting events to repo.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Process persists a single audit event.
func (s *auditService) Process(ctx context.Context, event domain.AuditEvent) error {
	if event.UserID == 0 || event.Action == "" {
		return fmt.Errorf("process audit event: missing user id or action")
	}

	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		metrics.AuditErrorsTotal.WithLabelValues("insert_failed").Inc()
		return fmt.Errorf("process audit event: %w", err)
	}

	metrics.AuditEventsTotal.WithLabelValues(string(event.Action)).Inc()
	s.log.Debug().
		Int64("user_id", event.UserID).
		Str("action", string(event.Action)).
		Msg("audit event recorded")
	return nil
}
