package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doara/doara/application/port/outbound"
	"github.com/doara/doara/domain/entity"
	"github.com/doara/doara/infrastructure/service/logger"
)

const (
	// MaxFailedAttempts is the counter value at which the account locks.
	MaxFailedAttempts = 5
	// LockDuration is how long a lock stays in effect once applied.
	LockDuration = 30 * time.Minute
)

// Engine owns the per-account failed-attempt counter and the timed lock. Lock
// expiry is handled lazily on IsAccountLocked instead of by a background
// sweeper. The engine performs no retries; persistence failures surface to
// the caller as-is.
type Engine struct {
	users outbound.UserRepository
	audit outbound.AuditEmitter
	log   logger.Logger
	now   func() time.Time
}

var _ outbound.LockoutClient = (*Engine)(nil)

func NewEngine(users outbound.UserRepository, audit outbound.AuditEmitter, log logger.Logger) *Engine {
	return &Engine{
		users: users,
		audit: audit,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// IsAccountLocked reports whether the lock is currently in effect. When an
// expired lock is found, the account is transitioned back to unlocked here:
// the release is a conditional update, so concurrent checks past expiry
// cannot double-apply the transition or its audit entry.
func (e *Engine) IsAccountLocked(ctx context.Context, email string) (bool, error) {
	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lockout check failed: %w", err)
	}

	now := e.now()
	if user.IsLockedAt(now) {
		return true, nil
	}

	if user.AccountLockedUntil != nil {
		released, err := e.users.ReleaseExpiredLock(ctx, user.ID, now)
		if err != nil {
			return false, fmt.Errorf("lock release failed: %w", err)
		}
		if released {
			e.audit.Emit(ctx, entity.NewAccountUnlockedAudit(user.ID, email))
			logger.LogSecurityEvent(ctx, e.log, "account_unlocked", "LOW", map[string]interface{}{
				"user_id": user.ID,
			})
		}
	}
	return false, nil
}

// RecordFailedLogin increments the counter and applies the lock at the
// threshold. Unknown emails and already-locked accounts are no-ops: the lock
// window must not be extended by attempts made while locked.
func (e *Engine) RecordFailedLogin(ctx context.Context, email string) error {
	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed login lookup failed: %w", err)
	}

	now := e.now()
	if user.IsLockedAt(now) {
		return nil
	}

	attempts := user.LoginFailedAttempts + 1
	if attempts < MaxFailedAttempts {
		if err := e.users.RecordLoginFailure(ctx, user.ID, attempts, now); err != nil {
			return fmt.Errorf("failed to persist login failure: %w", err)
		}
		return nil
	}

	until := now.Add(LockDuration)
	if err := e.users.LockAccount(ctx, user.ID, attempts, now, until); err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}

	e.audit.Emit(ctx, entity.NewAccountLockedAudit(user.ID, email, LockDuration))
	logger.LogSecurityEvent(ctx, e.log, "account_locked", "MEDIUM", map[string]interface{}{
		"user_id":  user.ID,
		"attempts": attempts,
	})
	return nil
}

// ResetFailedLoginAttempts zeroes the counter and stamps the login time after
// a successful authentication.
func (e *Engine) ResetFailedLoginAttempts(ctx context.Context, userID string) error {
	if err := e.users.ResetLoginFailures(ctx, userID, e.now()); err != nil {
		return fmt.Errorf("failed to reset login failures: %w", err)
	}
	return nil
}
