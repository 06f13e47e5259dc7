package entity

import (
	"fmt"
	"time"
)

const auditEntityUser = "User"

func newAuditEntry(actorID *string, action AuditAction, entityID *string, description string, metadata map[string]interface{}, ip *string) *AuditEntry {
	return &AuditEntry{
		ActorID:     actorID,
		Action:      action,
		Entity:      auditEntityUser,
		EntityID:    entityID,
		Description: description,
		Metadata:    metadata,
		IPAddress:   ip,
		CreatedAt:   time.Now().UTC(),
	}
}

func NewLoginSuccessAudit(userID, email string, ip *string) *AuditEntry {
	return newAuditEntry(&userID, ActionLoginSuccess, &userID,
		fmt.Sprintf("Successful login for %s", email),
		map[string]interface{}{"email": email}, ip)
}

// NewLoginFailedAudit has no actor: the attempt may not belong to any account.
func NewLoginFailedAudit(email, reason string, ip *string) *AuditEntry {
	return newAuditEntry(nil, ActionLoginFailed, nil,
		fmt.Sprintf("Failed login attempt for %s: %s", email, reason),
		map[string]interface{}{"email": email, "reason": reason}, ip)
}

func NewAccountLockedAudit(userID, email string, lockDuration time.Duration) *AuditEntry {
	return newAuditEntry(&userID, ActionAccountLocked, &userID,
		fmt.Sprintf("Account %s locked after repeated failed login attempts", email),
		map[string]interface{}{
			"email":        email,
			"lockDuration": lockDuration.String(),
		}, nil)
}

func NewAccountUnlockedAudit(userID, email string) *AuditEntry {
	return newAuditEntry(&userID, ActionAccountUnlocked, &userID,
		fmt.Sprintf("Account %s unlocked after lock expiry", email),
		map[string]interface{}{"email": email}, nil)
}

func NewUserCreatedAudit(userID string, createdBy *string) *AuditEntry {
	return newAuditEntry(createdBy, ActionUserCreated, &userID,
		fmt.Sprintf("User %s was created", userID),
		map[string]interface{}{MetadataTargetUserID: userID}, nil)
}

func NewUserUpdatedAudit(userID string, updatedBy *string, changedFields []string) *AuditEntry {
	return newAuditEntry(updatedBy, ActionUserUpdated, &userID,
		fmt.Sprintf("User %s was updated", userID),
		map[string]interface{}{
			MetadataTargetUserID: userID,
			"changedFields":      changedFields,
		}, nil)
}

func NewUserDeletedAudit(userID string, deletedBy *string) *AuditEntry {
	return newAuditEntry(deletedBy, ActionUserDeleted, &userID,
		fmt.Sprintf("User %s was deactivated (soft delete)", userID),
		map[string]interface{}{
			MetadataTargetUserID: userID,
			"deleteType":         "soft",
		}, nil)
}

func NewUserHardDeletedAudit(userID string, deletedBy *string) *AuditEntry {
	return newAuditEntry(deletedBy, ActionUserHardDeleted, &userID,
		fmt.Sprintf("User %s was permanently removed", userID),
		map[string]interface{}{
			MetadataTargetUserID: userID,
			"deleteType":         "hard",
		}, nil)
}

func NewPasswordChangedAudit(userID string, changedBy *string) *AuditEntry {
	selfChange := changedBy != nil && *changedBy == userID
	return newAuditEntry(changedBy, ActionPasswordChanged, &userID,
		fmt.Sprintf("Password for user %s was changed", userID),
		map[string]interface{}{
			MetadataTargetUserID: userID,
			"isSelfChange":       selfChange,
		}, nil)
}
