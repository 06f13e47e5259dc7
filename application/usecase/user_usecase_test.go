package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

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

type userFixture struct {
	users     *MockUserRepository
	passwords *MockPasswordService
	audit     *MockAuditEmitter
	uc        *UserUseCase
}

func newUserFixture() *userFixture {
	f := &userFixture{
		users:     new(MockUserRepository),
		passwords: new(MockPasswordService),
		audit:     new(MockAuditEmitter),
	}
	log := logger.NewStructuredLogger(logger.Config{Level: "error", Format: "json", ServiceName: "test"})
	f.uc = NewUserUseCase(f.users, f.passwords, f.audit, log)
	return f
}

func strPtr(s string) *string { return &s }

func TestCreateUser(t *testing.T) {
	f := newUserFixture()

	f.users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, outbound.ErrUserNotFound)
	f.users.On("FindByUsername", mock.Anything, "newbie").Return(nil, outbound.ErrUserNotFound)
	f.passwords.On("HashPassword", "s3cret").Return("$2a$10$hash", nil)
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
		return u.PasswordHash == "$2a$10$hash" && u.Status == entity.StatusPendingVerification
	})).Return(nil)
	f.audit.On("Emit", mock.Anything, mock.MatchedBy(func(e *entity.AuditEntry) bool {
		return e.Action == entity.ActionUserCreated
	})).Return()

	user, err := f.uc.Create(context.Background(), CreateUserRequest{
		Email:    strPtr("new@example.com"),
		Username: strPtr("newbie"),
		Password: "s3cret",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "new@example.com", *user.Email)
	assert.Equal(t, entity.StatusPendingVerification, user.Status)
	f.audit.AssertExpectations(t)
}

func TestCreateUserEmailTaken(t *testing.T) {
	f := newUserFixture()

	existing := entity.NewUser("u1", strPtr("taken@example.com"), nil, "")
	f.users.On("FindByEmail", mock.Anything, "taken@example.com").Return(existing, nil)

	_, err := f.uc.Create(context.Background(), CreateUserRequest{
		Email:    strPtr("taken@example.com"),
		Password: "s3cret",
	})

	assert.ErrorIs(t, err, outbound.ErrEmailTaken)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateUserRequiresIdentity(t *testing.T) {
	f := newUserFixture()

	_, err := f.uc.Create(context.Background(), CreateUserRequest{Password: "s3cret"})

	assert.Error(t, err)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateUserAuditsChangedFields(t *testing.T) {
	f := newUserFixture()

	user := entity.NewUser("u1", strPtr("old@example.com"), strPtr("olduser"), "$2a$10$old")
	f.users.On("FindByID", mock.Anything, "u1").Return(user, nil)
	f.users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, outbound.ErrUserNotFound)
	f.passwords.On("HashPassword", "newpass").Return("$2a$10$new", nil)
	f.users.On("Update", mock.Anything, mock.Anything).Return(nil)

	var actions []entity.AuditAction
	f.audit.On("Emit", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		actions = append(actions, args.Get(1).(*entity.AuditEntry).Action)
	}).Return()

	updated, err := f.uc.Update(context.Background(), UpdateUserRequest{
		ID:       "u1",
		Email:    strPtr("new@example.com"),
		Password: strPtr("newpass"),
		ActorID:  strPtr("admin-1"),
	})

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", *updated.Email)
	assert.Contains(t, actions, entity.ActionUserUpdated)
	assert.Contains(t, actions, entity.ActionPasswordChanged)
}

func TestUpdateUserNoChangesSkipsAudit(t *testing.T) {
	f := newUserFixture()

	user := entity.NewUser("u1", strPtr("same@example.com"), nil, "")
	f.users.On("FindByID", mock.Anything, "u1").Return(user, nil)
	f.users.On("Update", mock.Anything, mock.Anything).Return(nil)

	_, err := f.uc.Update(context.Background(), UpdateUserRequest{
		ID:    "u1",
		Email: strPtr("same@example.com"),
	})

	require.NoError(t, err)
	f.audit.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
}

func TestSoftDeleteAudits(t *testing.T) {
	f := newUserFixture()

	f.users.On("SoftDelete", mock.Anything, "u1", mock.Anything).Return(nil)
	f.audit.On("Emit", mock.Anything, mock.MatchedBy(func(e *entity.AuditEntry) bool {
		return e.Action == entity.ActionUserDeleted && e.Metadata["deleteType"] == "soft"
	})).Return()

	err := f.uc.SoftDelete(context.Background(), "u1", strPtr("admin-1"))

	assert.NoError(t, err)
	f.audit.AssertExpectations(t)
}

func TestHardDeleteAudits(t *testing.T) {
	f := newUserFixture()

	f.users.On("HardDelete", mock.Anything, "u1").Return(nil)
	f.audit.On("Emit", mock.Anything, mock.MatchedBy(func(e *entity.AuditEntry) bool {
		return e.Action == entity.ActionUserHardDeleted && e.Metadata["deleteType"] == "hard"
	})).Return()

	err := f.uc.HardDelete(context.Background(), "u1", strPtr("admin-1"))

	assert.NoError(t, err)
	f.audit.AssertExpectations(t)
}

func TestHardDeleteNotFound(t *testing.T) {
	f := newUserFixture()

	f.users.On("HardDelete", mock.Anything, "missing").Return(outbound.ErrUserNotFound)

	err := f.uc.HardDelete(context.Background(), "missing", nil)

	assert.ErrorIs(t, err, outbound.ErrUserNotFound)
	f.audit.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
}

func TestFindByEmailUnknownIsNil(t *testing.T) {
	f := newUserFixture()

	f.users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, outbound.ErrUserNotFound)

	user, err := f.uc.FindByEmail(context.Background(), "nobody@example.com")

	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestListPaginates(t *testing.T) {
	f := newUserFixture()

	f.users.On("FindAll", mock.Anything, 20, 10).Return([]*entity.User{
		entity.NewUser("u1", strPtr("a@example.com"), nil, ""),
	}, nil)

	users, err := f.uc.List(context.Background(), 3, 10)

	require.NoError(t, err)
	assert.Len(t, users, 1)
	f.users.AssertCalled(t, "FindAll", mock.Anything, 20, 10)
}
