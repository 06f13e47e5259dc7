package outbound

import (
	"context"
	"time"

	"github.com/doara/doara/domain/entity"
)

// AuditRepository is the append-only audit store. Insert failures surface to
// the caller; swallowing them is the recorder's job, not the repository's.
type AuditRepository interface {
	Insert(ctx context.Context, entry *entity.AuditEntry) error
	FindByActor(ctx context.Context, actorID string, limit int) ([]*entity.AuditEntry, error)
	FindByAction(ctx context.Context, action entity.AuditAction, limit int) ([]*entity.AuditEntry, error)
	FindByDateRange(ctx context.Context, start, end time.Time, limit int) ([]*entity.AuditEntry, error)
}
