package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doara/doara/application/port/outbound"
	"github.com/doara/doara/domain/entity"
)

// Query limits are capped here regardless of what callers ask for.
const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

const auditColumns = `id, actor_id, action, entity, entity_id, description, metadata, ip_address, created_at`

type auditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) outbound.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Insert(ctx context.Context, entry *entity.AuditEntry) error {
	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, actor_id, action, entity, entity_id, description, metadata, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.Entity,
		entry.EntityID,
		entry.Description,
		metadata,
		entry.IPAddress,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// FindByActor matches entries performed by the actor as well as entries whose
// metadata records the actor as the affected target, since many events are
// system or admin initiated against a different subject.
func (r *auditRepository) FindByActor(ctx context.Context, actorID string, limit int) ([]*entity.AuditEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_logs
		WHERE actor_id = $1 OR metadata->>'%s' = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, auditColumns, entity.MetadataTargetUserID)

	return r.queryEntries(ctx, query, actorID, clampLimit(limit))
}

func (r *auditRepository) FindByAction(ctx context.Context, action entity.AuditAction, limit int) ([]*entity.AuditEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_logs
		WHERE action = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, auditColumns)

	return r.queryEntries(ctx, query, action, clampLimit(limit))
}

func (r *auditRepository) FindByDateRange(ctx context.Context, start, end time.Time, limit int) ([]*entity.AuditEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_logs
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, auditColumns)

	return r.queryEntries(ctx, query, start, end, clampLimit(limit))
}

func (r *auditRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*entity.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		var entry entity.AuditEntry
		var metadata []byte
		err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.Entity,
			&entry.EntityID,
			&entry.Description,
			&metadata,
			&entry.IPAddress,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode audit metadata: %w", err)
			}
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return entries, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultAuditLimit
	}
	if limit > maxAuditLimit {
		return maxAuditLimit
	}
	return limit
}
