// Package audit implements the append-only trail of security-relevant
// events. Writes are best-effort: a failing audit store must never abort the
// business operation that triggered the event.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/doara/doara/application/port/outbound"
	"github.com/doara/doara/domain/entity"
	"github.com/doara/doara/infrastructure/service/logger"
)

// Recorder wraps the audit repository with an error boundary on the write
// path and exposes the query surface unchanged.
type Recorder struct {
	repo outbound.AuditRepository
	log  logger.Logger
}

var (
	_ outbound.AuditEmitter     = (*Recorder)(nil)
	_ outbound.AuditQueryClient = (*Recorder)(nil)
)

func NewRecorder(repo outbound.AuditRepository, log logger.Logger) *Recorder {
	return &Recorder{repo: repo, log: log}
}

// Record persists the entry. Failures are logged to the operational channel
// and swallowed.
func (r *Recorder) Record(ctx context.Context, entry *entity.AuditEntry) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := r.repo.Insert(ctx, entry); err != nil {
		r.log.Error(ctx, "Failed to write audit entry", err, map[string]interface{}{
			"action": entry.Action,
			"entity": entry.Entity,
		})
	}
}

// Emit satisfies the fire-and-forget emitter port.
func (r *Recorder) Emit(ctx context.Context, entry *entity.AuditEntry) {
	r.Record(ctx, entry)
}

func (r *Recorder) LogsByUser(ctx context.Context, userID string, limit int) ([]*entity.AuditEntry, error) {
	return r.repo.FindByActor(ctx, userID, limit)
}

func (r *Recorder) LogsByAction(ctx context.Context, action entity.AuditAction, limit int) ([]*entity.AuditEntry, error) {
	return r.repo.FindByAction(ctx, action, limit)
}

func (r *Recorder) LogsByDateRange(ctx context.Context, start, end time.Time, limit int) ([]*entity.AuditEntry, error) {
	return r.repo.FindByDateRange(ctx, start, end, limit)
}
