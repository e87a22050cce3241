package usecase_test

import (
	"github.com/stretchr/testify/mock"

	"github.com/tutorstack/essay-tutor/internal/domain"
)

type mockEssayRepo struct{ mock.Mock }

func (m *mockEssayRepo) Create(ctx domain.Context, e domain.Essay) (string, error) {
	args := m.Called(ctx, e)
	return args.String(0), args.Error(1)
}

func (m *mockEssayRepo) Get(ctx domain.Context, id string) (domain.Essay, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Essay), args.Error(1)
}

func (m *mockEssayRepo) Count(ctx domain.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockJobRepo struct{ mock.Mock }

func (m *mockJobRepo) Create(ctx domain.Context, j domain.Job) (string, error) {
	args := m.Called(ctx, j)
	return args.String(0), args.Error(1)
}

func (m *mockJobRepo) UpdateStatus(ctx domain.Context, id string, status domain.JobStatus, errMsg *string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *mockJobRepo) Get(ctx domain.Context, id string) (domain.Job, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Job), args.Error(1)
}

func (m *mockJobRepo) FindByIdempotencyKey(ctx domain.Context, key string) (domain.Job, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.Job), args.Error(1)
}

type mockQueue struct{ mock.Mock }

func (m *mockQueue) EnqueueEvaluate(ctx domain.Context, p domain.EvaluateTaskPayload) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

type mockReportRepo struct{ mock.Mock }

func (m *mockReportRepo) Upsert(ctx domain.Context, jobID string, r domain.AnnotatedReport) error {
	args := m.Called(ctx, jobID, r)
	return args.Error(0)
}

func (m *mockReportRepo) GetByJobID(ctx domain.Context, jobID string) (domain.AnnotatedReport, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(domain.AnnotatedReport), args.Error(1)
}
