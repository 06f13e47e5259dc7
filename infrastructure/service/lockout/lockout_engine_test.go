package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/doara/doara/application/port/outbound"
	"github.com/doara/doara/domain/entity"
	"github.com/doara/doara/infrastructure/service/logger"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, offset, limit int) ([]*entity.User, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserRepository) HardDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) RecordLoginFailure(ctx context.Context, id string, attempts int, at time.Time) error {
	args := m.Called(ctx, id, attempts, at)
	return args.Error(0)
}

func (m *MockUserRepository) LockAccount(ctx context.Context, id string, attempts int, at, until time.Time) error {
	args := m.Called(ctx, id, attempts, at, until)
	return args.Error(0)
}

func (m *MockUserRepository) ReleaseExpiredLock(ctx context.Context, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ResetLoginFailures(ctx context.Context, id string, loginAt time.Time) error {
	args := m.Called(ctx, id, loginAt)
	return args.Error(0)
}

type MockAuditEmitter struct {
	mock.Mock
}

func (m *MockAuditEmitter) Emit(ctx context.Context, entry *entity.AuditEntry) {
	m.Called(ctx, entry)
}

func newTestEngine(users *MockUserRepository, audit *MockAuditEmitter, now time.Time) *Engine {
	log := logger.NewStructuredLogger(logger.Config{Level: "error", Format: "json", ServiceName: "test"})
	e := NewEngine(users, audit, log)
	e.now = func() time.Time { return now }
	return e
}

func lockoutUser(id string, attempts int, lockedUntil *time.Time) *entity.User {
	email := id + "@example.com"
	return &entity.User{
		ID:                  id,
		Email:               &email,
		Status:              entity.StatusActive,
		LoginFailedAttempts: attempts,
		AccountLockedUntil:  lockedUntil,
	}
}

func TestIsAccountLockedUnknownEmail(t *testing.T) {
	users := new(MockUserRepository)
	audit := new(MockAuditEmitter)
	engine := newTestEngine(users, audit, time.Now().UTC())

	users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, outbound.ErrUserNotFound)

	locked, err := engine.IsAccountLocked(context.Background(), "nobody@example.com")

	assert.NoError(t, err)
	assert.False(t, locked)
}

func TestIsAccountLockedActiveLock(t *testing.T) {
	now := time.Now().UTC()
	until := now.Add(10 * time.Minute)
	users := new(MockUserRepository)
	audit := new(MockAuditEmitter)
	engine := newTestEngine(users, audit, now)

	users.On("FindByEmail", mock.Anything, "u1@example.com").Return(lockoutUser("u1", 5, &until), nil)

	locked, err := engine.IsAccountLocked(context.Background(), "u1@example.com")

	assert.NoError(t, err)
	assert.True(t, locked)
	users.AssertNotCalled(t, "ReleaseExpiredLock", mock.Anything, mock.Anything, mock.Anything)
}

func TestIsAccountLockedExpiredLockReleases(t *testing.T) {
	now := time.Now().UTC()
	until := now.Add(-time.Minute)
	users := new(MockUserRepository)
	audit := new(MockAuditEmitter)
	engine := newTestEngine(users, audit, now)

	users.On("FindByEmail", mock.Anything, "u1@example.com").Return(lockoutUser("u1", 5, &until), nil)
	users.On("ReleaseExpiredLock", mock.Anything, "u1", now).Return(true, nil)
	audit.On("Emit", mock.Anything, mock.MatchedBy(func(e *entity.AuditEntry) bool {
		return e.Action == entity.ActionAccountUnlocked
	})).Return()

	locked, err := engine.IsAccountLocked(context.Background(), "u1@example.com")

	assert.NoError(t, err)
	assert.False(t, locked)
	audit.AssertExpectations(t)
}

func TestIsAccountLockedExpiredLockAlreadyReleased(t *testing.T) {
	now := time.Now().UTC()
	until := now.Add(-time.Minute)
	users := new(MockUserRepository)
	audit := new(MockAuditEmitter)
	engine := newTestEngine(users, audit, now)

	users.On("FindByEmail", mock.Anything, "u1@example.com").Return(lockoutUser("u1", 5, &until), nil)
	// Another concurrent check already flipped the row; no second audit entry.
	users.On("ReleaseExpiredLock", mock.Anything, "u1", now).Return(false, nil)

	locked, err := engine.IsAccountLocked(context.Background(), "u1@example.com")

	assert.NoError(t, err)
	assert.False(t, locked)
	audit.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
}

func TestRecordFailedLoginIncrementsBelowThreshold(t *testing.T) {
	now := time.Now().UTC()
	users := new(MockUserRepository)
	audit := new(MockAuditEmitter)
	engine := newTestEngine(users, audit, now)

	users.On("FindByEmail", mock.Anything, "u1@example.com").Return(lockoutUser("u1", 2, nil), nil)
	users.On("RecordLoginFailure", mock.Anything, "u1", 3, now).Return(nil)

	err := engine.RecordFailedLogin(context.Background(), "u1@example.com")

	assert.NoError(t, err)
	users.AssertCalled(t, "RecordLoginFailure", mock.Anything, "u1", 3, now)
	users.AssertNotCalled(t, "LockAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	audit.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
}

func TestRecordFailedLoginLocksAtThreshold(t *testing.T) {
	now := time.Now().UTC()
	users := new(MockUserRepository)
	audit := new(MockAuditEmitter)
	engine := newTestEngine(users, audit, now)

	users.On("FindByEmail", mock.Anything, "u1@example.com").Return(lockoutUser("u1", 4, nil), nil)
	users.On("LockAccount", mock.Anything, "u1", 5, now, now.Add(LockDuration)).Return(nil)
	audit.On("Emit", mock.Anything, mock.MatchedBy(func(e *entity.AuditEntry) bool {
		return e.Action == entity.ActionAccountLocked
	})).Return()

	err := engine.RecordFailedLogin(context.Background(), "u1@example.com")

	assert.NoError(t, err)
	users.AssertCalled(t, "LockAccount", mock.Anything, "u1", 5, now, now.Add(LockDuration))
	audit.AssertExpectations(t)
}

func TestRecordFailedLoginNoOpWhileLocked(t *testing.T) {
	now := time.Now().UTC()
	until := now.Add(10 * time.Minute)
	users := new(MockUserRepository)
	audit := new(MockAuditEmitter)
	engine := newTestEngine(users, audit, now)

	users.On("FindByEmail", mock.Anything, "u1@example.com").Return(lockoutUser("u1", 5, &until), nil)

	err := engine.RecordFailedLogin(context.Background(), "u1@example.com")

	assert.NoError(t, err)
	// The lock window must not be extended by attempts made while locked.
	users.AssertNotCalled(t, "RecordLoginFailure", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "LockAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordFailedLoginUnknownEmail(t *testing.T) {
	users := new(MockUserRepository)
	audit := new(MockAuditEmitter)
	engine := newTestEngine(users, audit, time.Now().UTC())

	users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, outbound.ErrUserNotFound)

	assert.NoError(t, engine.RecordFailedLogin(context.Background(), "nobody@example.com"))
}

func TestResetFailedLoginAttempts(t *testing.T) {
	now := time.Now().UTC()
	users := new(MockUserRepository)
	audit := new(MockAuditEmitter)
	engine := newTestEngine(users, audit, now)

	users.On("ResetLoginFailures", mock.Anything, "u1", now).Return(nil)

	assert.NoError(t, engine.ResetFailedLoginAttempts(context.Background(), "u1"))
	users.AssertExpectations(t)
}
