package entity

import "time"

// AuditAction enumerates the security and domain events the trail records.
type AuditAction string

const (
	ActionUserCreated     AuditAction = "USER_CREATED"
	ActionUserUpdated     AuditAction = "USER_UPDATED"
	ActionUserDeleted     AuditAction = "USER_DELETED"
	ActionUserHardDeleted AuditAction = "USER_HARD_DELETED"
	ActionLoginSuccess    AuditAction = "USER_LOGIN_SUCCESS"
	ActionLoginFailed     AuditAction = "USER_LOGIN_FAILED"
	ActionAccountLocked   AuditAction = "USER_ACCOUNT_LOCKED"
	ActionAccountUnlocked AuditAction = "USER_ACCOUNT_UNLOCKED"
	ActionPasswordChanged AuditAction = "USER_PASSWORD_CHANGED"
)

// MetadataTargetUserID is the metadata key recording which account an event
// affected when the actor is someone else (or the system).
const MetadataTargetUserID = "targetUserId"

// AuditEntry is an append-only record of a security-relevant event. Once
// written it is never mutated or deleted by the application.
type AuditEntry struct {
	ID          string                 `json:"id"`
	ActorID     *string                `json:"actor_id"`
	Action      AuditAction            `json:"action"`
	Entity      string                 `json:"entity"`
	EntityID    *string                `json:"entity_id"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	IPAddress   *string                `json:"ip_address,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// TargetUserID returns the affected account id recorded in metadata, if any.
func (e *AuditEntry) TargetUserID() string {
	if e.Metadata == nil {
		return ""
	}
	if v, ok := e.Metadata[MetadataTargetUserID].(string); ok {
		return v
	}
	return ""
}
