package outbound

import (
	"context"
	"time"

	"github.com/doara/doara/domain/entity"
)

// The gateway holds no durable state. These ports are its view of the user
// service, implemented over the message channel; the service side implements
// the same behavior directly against storage.

// LockoutClient mediates the per-account failed-attempt state machine.
type LockoutClient interface {
	IsAccountLocked(ctx context.Context, email string) (bool, error)
	RecordFailedLogin(ctx context.Context, email string) error
	ResetFailedLoginAttempts(ctx context.Context, userID string) error
}

// AuditEmitter delivers an audit entry best-effort. Implementations never
// return an error and never block the business flow that emitted the event.
type AuditEmitter interface {
	Emit(ctx context.Context, entry *entity.AuditEntry)
}

// AuditQueryClient is the gateway's read surface over the audit trail.
type AuditQueryClient interface {
	LogsByUser(ctx context.Context, userID string, limit int) ([]*entity.AuditEntry, error)
	LogsByAction(ctx context.Context, action entity.AuditAction, limit int) ([]*entity.AuditEntry, error)
	LogsByDateRange(ctx context.Context, start, end time.Time, limit int) ([]*entity.AuditEntry, error)
}
