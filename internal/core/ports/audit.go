package ports

import (
	"context"

	"github.com/docshare/identity-api/internal/core/domain"
)

// AuditSink accepts audit events for asynchronous persistence.
type AuditSink interface {
	Publish(event domain.AuditEvent)
}

// AuditRepository persists audit events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuditEvent) error
}

// AuditService processes a single audit event taken off the queue.
type AuditService interface {
	Process(ctx context.Context, event domain.AuditEvent) error
}
