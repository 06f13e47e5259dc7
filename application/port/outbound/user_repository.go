package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/doara/doara/domain/entity"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already in use")
)

// UserRepository is the durable account store owned by the user service.
// Every read returns the entity with its hash column omitted; the credential
// path lives on CredentialReader so redaction holds structurally.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	FindAll(ctx context.Context, offset, limit int) ([]*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	HardDelete(ctx context.Context, id string) error

	// Lockout bookkeeping. RecordLoginFailure persists the counter and
	// timestamp; LockAccount additionally applies the lock and suspends the
	// account; ReleaseExpiredLock clears an expired lock with a conditional
	// update and reports whether this call performed the transition;
	// ResetLoginFailures zeroes the counter and stamps the login time.
	RecordLoginFailure(ctx context.Context, id string, attempts int, at time.Time) error
	LockAccount(ctx context.Context, id string, attempts int, at, until time.Time) error
	ReleaseExpiredLock(ctx context.Context, id string, now time.Time) (bool, error)
	ResetLoginFailures(ctx context.Context, id string, loginAt time.Time) error
}

// CredentialReader is the only read path in the system allowed to surface the
// password hash. An unknown email yields (nil, nil), not an error.
type CredentialReader interface {
	FindByEmailWithPassword(ctx context.Context, email string) (*entity.Credential, error)
}
