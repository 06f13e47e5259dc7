package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/doara/doara/domain/entity"
	"github.com/doara/doara/infrastructure/service/logger"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, entry *entity.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) FindByActor(ctx context.Context, actorID string, limit int) ([]*entity.AuditEntry, error) {
	args := m.Called(ctx, actorID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.AuditEntry), args.Error(1)
}

func (m *MockAuditRepository) FindByAction(ctx context.Context, action entity.AuditAction, limit int) ([]*entity.AuditEntry, error) {
	args := m.Called(ctx, action, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.AuditEntry), args.Error(1)
}

func (m *MockAuditRepository) FindByDateRange(ctx context.Context, start, end time.Time, limit int) ([]*entity.AuditEntry, error) {
	args := m.Called(ctx, start, end, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.AuditEntry), args.Error(1)
}

func newTestRecorder(repo *MockAuditRepository) *Recorder {
	log := logger.NewStructuredLogger(logger.Config{Level: "error", Format: "json", ServiceName: "test"})
	return NewRecorder(repo, log)
}

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	repo := new(MockAuditRepository)
	recorder := newTestRecorder(repo)

	var inserted *entity.AuditEntry
	repo.On("Insert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(*entity.AuditEntry)
	}).Return(nil)

	recorder.Record(context.Background(), &entity.AuditEntry{
		Action: entity.ActionUserCreated,
		Entity: "User",
	})

	assert.NotEmpty(t, inserted.ID)
	assert.False(t, inserted.CreatedAt.IsZero())
}

func TestRecordSwallowsRepositoryError(t *testing.T) {
	repo := new(MockAuditRepository)
	recorder := newTestRecorder(repo)

	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	// Must not panic and must not surface the failure to the caller.
	recorder.Record(context.Background(), &entity.AuditEntry{
		Action: entity.ActionLoginFailed,
		Entity: "User",
	})

	repo.AssertCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestRecordIgnoresNil(t *testing.T) {
	repo := new(MockAuditRepository)
	recorder := newTestRecorder(repo)

	recorder.Record(context.Background(), nil)

	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestQueriesPassThrough(t *testing.T) {
	repo := new(MockAuditRepository)
	recorder := newTestRecorder(repo)

	expected := []*entity.AuditEntry{{ID: "e1"}}
	repo.On("FindByActor", mock.Anything, "u1", 50).Return(expected, nil)

	entries, err := recorder.LogsByUser(context.Background(), "u1", 50)

	assert.NoError(t, err)
	assert.Equal(t, expected, entries)
}
