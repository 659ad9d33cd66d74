package domain

import "time"

// AuditAction names an identity lifecycle step recorded in the audit trail.
type AuditAction string

const (
	AuditSignup AuditAction = "signup"
	AuditLogin  AuditAction = "login"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

// AuditEvent is an append-only record of an identity operation.
// It never carries secrets.
type AuditEvent struct {
	UserID     int64
	Action     AuditAction
	Detail     string
	OccurredAt time.Time
}
