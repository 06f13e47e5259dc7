package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doara/doara/application/port/inbound"
	"github.com/doara/doara/application/port/outbound"
	"github.com/doara/doara/domain/entity"
	"github.com/doara/doara/infrastructure/service/logger"
)

var (
	// ErrInvalidCredentials covers both unknown identifiers and wrong
	// passwords so the response does not allow account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned without looking up credentials at all.
	ErrAccountLocked = errors.New("account temporarily locked due to multiple failed login attempts")

	// ErrServiceUnavailable is the transient class: safe to retry, distinct
	// from any authorization denial.
	ErrServiceUnavailable = errors.New("authentication service temporarily unavailable")
)

// AuthUseCase orchestrates the login flow in the gateway process: lock check,
// credential validation, lockout bookkeeping and token issuance. The gateway
// holds no durable state; every account mutation goes through the directory
// ports.
type AuthUseCase struct {
	credentials    outbound.CredentialReader
	lockout        outbound.LockoutClient
	audit          outbound.AuditEmitter
	tokens         outbound.TokenService
	passwords      outbound.PasswordService
	log            logger.Logger
	accessTokenTTL time.Duration
}

var _ inbound.AuthUseCase = (*AuthUseCase)(nil)

func NewAuthUseCase(
	credentials outbound.CredentialReader,
	lockout outbound.LockoutClient,
	audit outbound.AuditEmitter,
	tokens outbound.TokenService,
	passwords outbound.PasswordService,
	log logger.Logger,
	accessTokenTTL time.Duration,
) *AuthUseCase {
	return &AuthUseCase{
		credentials:    credentials,
		lockout:        lockout,
		audit:          audit,
		tokens:         tokens,
		passwords:      passwords,
		log:            log,
		accessTokenTTL: accessTokenTTL,
	}
}

// Login runs the authentication state machine in a single pass, no retries.
// Exactly one of lock short-circuit, failure-counter mutation, or counter
// reset plus token issuance happens per call. Audit entries for the attempt
// itself are written here, best-effort, never blocking the outcome.
func (uc *AuthUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if req.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	ip := ipPtr(req.IPAddress)

	locked, err := uc.lockout.IsAccountLocked(ctx, req.Email)
	if err != nil {
		uc.log.Error(ctx, "Lock check failed", err, map[string]interface{}{"email": req.Email})
		return nil, fmt.Errorf("%w: lock check: %v", ErrServiceUnavailable, err)
	}
	if locked {
		// The lock event was audited when the lock was applied; no new
		// entry here and no credential lookup either.
		logger.LogAuthEvent(ctx, uc.log, "login_rejected_locked", "", req.IPAddress, false, map[string]interface{}{
			"email": req.Email,
		})
		return nil, ErrAccountLocked
	}

	cred, err := uc.credentials.FindByEmailWithPassword(ctx, req.Email)
	if err != nil {
		uc.log.Error(ctx, "Credential lookup failed", err, map[string]interface{}{"email": req.Email})
		return nil, fmt.Errorf("%w: credential lookup: %v", ErrServiceUnavailable, err)
	}

	if cred == nil || cred.PasswordHash == "" {
		// Unknown identifier and password-less account look identical to
		// the caller. RecordFailedLogin is a no-op for unknown emails.
		uc.recordFailure(ctx, req.Email)
		uc.audit.Emit(ctx, entity.NewLoginFailedAudit(req.Email, "invalid credentials", ip))
		logger.LogAuthEvent(ctx, uc.log, "login_failed", "", req.IPAddress, false, map[string]interface{}{
			"email": req.Email,
		})
		return nil, ErrInvalidCredentials
	}

	match, err := uc.passwords.VerifyPassword(req.Password, cred.PasswordHash)
	if err != nil {
		uc.log.Error(ctx, "Password verification failed", err, map[string]interface{}{
			"user_id": cred.User.ID,
		})
		return nil, fmt.Errorf("%w: password verification: %v", ErrServiceUnavailable, err)
	}
	if !match {
		uc.recordFailure(ctx, req.Email)
		uc.audit.Emit(ctx, entity.NewLoginFailedAudit(req.Email, "invalid credentials", ip))
		logger.LogAuthEvent(ctx, uc.log, "login_failed", cred.User.ID, req.IPAddress, false, map[string]interface{}{
			"email": req.Email,
		})
		return nil, ErrInvalidCredentials
	}

	// Best-effort: a bookkeeping failure must not block a valid login.
	if err := uc.lockout.ResetFailedLoginAttempts(ctx, cred.User.ID); err != nil {
		uc.log.Error(ctx, "Failed to reset login attempts", err, map[string]interface{}{
			"user_id": cred.User.ID,
		})
	}

	token, err := uc.tokens.GenerateAccessToken(tokenClaims(cred.User))
	if err != nil {
		uc.log.Error(ctx, "Failed to generate access token", err, map[string]interface{}{
			"user_id": cred.User.ID,
		})
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	uc.audit.Emit(ctx, entity.NewLoginSuccessAudit(cred.User.ID, req.Email, ip))
	logger.LogAuthEvent(ctx, uc.log, "login_successful", cred.User.ID, req.IPAddress, true, map[string]interface{}{
		"email": req.Email,
	})

	return &inbound.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(uc.accessTokenTTL.Seconds()),
		User:        cred.User,
	}, nil
}

func (uc *AuthUseCase) recordFailure(ctx context.Context, email string) {
	if err := uc.lockout.RecordFailedLogin(ctx, email); err != nil {
		uc.log.Error(ctx, "Failed to record login failure", err, map[string]interface{}{
			"email": email,
		})
	}
}

func tokenClaims(user *entity.PublicUser) outbound.TokenClaims {
	claims := outbound.TokenClaims{
		UserID:      user.ID,
		IsAdmin:     user.IsAdmin,
		IsModerator: user.IsModerator,
	}
	if user.Email != nil {
		claims.Email = *user.Email
	}
	if user.Username != nil {
		claims.Username = *user.Username
	}
	return claims
}

func ipPtr(ip string) *string {
	if ip == "" {
		return nil
	}
	return &ip
}
