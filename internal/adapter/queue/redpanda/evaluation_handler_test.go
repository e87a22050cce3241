package redpanda_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tutorstack/essay-tutor/internal/adapter/queue/redpanda"
	"github.com/tutorstack/essay-tutor/internal/domain"
	"github.com/tutorstack/essay-tutor/internal/report"
)

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

type mockReportRepo struct{ mock.Mock }

func (m *mockReportRepo) Upsert(ctx domain.Context, jobID string, r domain.AnnotatedReport) error {
	args := m.Called(ctx, jobID, r)
	return args.Error(0)
}

func (m *mockReportRepo) GetByJobID(ctx domain.Context, jobID string) (domain.AnnotatedReport, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(domain.AnnotatedReport), args.Error(1)
}

type mockAIClient struct{ mock.Mock }

func (m *mockAIClient) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt, maxTokens)
	return args.String(0), args.Error(1)
}

const validEvaluation = `{
  "scores": {"grammar": 4, "vocabulary": 3.5, "structure": 4, "development": 3, "clarity": 4},
  "annotations": [
    {"category": "grammar", "severity": "minor", "original_excerpt": "I has been", "explanation": "Subject-verb agreement.", "suggested_replacement": "I have been"}
  ],
  "feedback": [
    {"category": "grammar", "type": "improvement", "title": "Agreement", "body": "Check subject-verb agreement throughout."}
  ],
  "paragraph_feedback": []
}`

func testEssay() domain.Essay {
	return domain.Essay{
		ID:     "essay-1",
		Text:   "I has been studying English for three years. My writing improves every month.",
		Source: domain.EssaySourceTyped,
	}
}

func testPayload() domain.EvaluateTaskPayload {
	return domain.EvaluateTaskPayload{JobID: "job-1", EssayID: "essay-1", RubricID: "default"}
}

func TestHandle_Success(t *testing.T) {
	t.Parallel()
	jobs := &mockJobRepo{}
	essays := &mockEssayRepo{}
	reports := &mockReportRepo{}
	aicl := &mockAIClient{}

	jobs.On("UpdateStatus", mock.Anything, "job-1", domain.JobProcessing, (*string)(nil)).Return(nil)
	essays.On("Get", mock.Anything, "essay-1").Return(testEssay(), nil)
	aicl.On("ChatJSON", mock.Anything, mock.Anything, mock.Anything, 2048).Return(validEvaluation, nil)
	reports.On("Upsert", mock.Anything, "job-1", mock.MatchedBy(func(r domain.AnnotatedReport) bool {
		return r.OverallScore > 0 && len(r.Segments) > 0
	})).Return(nil)
	jobs.On("UpdateStatus", mock.Anything, "job-1", domain.JobCompleted, (*string)(nil)).Return(nil)

	h := redpanda.NewEvaluationHandler(jobs, essays, reports, aicl, report.DefaultRubric(), 2048)
	err := h.Handle(context.Background(), testPayload())
	require.NoError(t, err)
	jobs.AssertExpectations(t)
	reports.AssertExpectations(t)
}

func TestHandle_PromptsCarryEssayText(t *testing.T) {
	t.Parallel()
	jobs := &mockJobRepo{}
	essays := &mockEssayRepo{}
	reports := &mockReportRepo{}
	aicl := &mockAIClient{}

	jobs.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	essays.On("Get", mock.Anything, "essay-1").Return(testEssay(), nil)
	var gotUser string
	aicl.On("ChatJSON", mock.Anything, mock.Anything, mock.Anything, 1024).
		Run(func(args mock.Arguments) { gotUser = args.String(2) }).
		Return(validEvaluation, nil)
	reports.On("Upsert", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	h := redpanda.NewEvaluationHandler(jobs, essays, reports, aicl, report.DefaultRubric(), 1024)
	require.NoError(t, h.Handle(context.Background(), testPayload()))
	assert.Contains(t, gotUser, "I has been studying English")
}

func TestHandle_EssayNotFound(t *testing.T) {
	t.Parallel()
	jobs := &mockJobRepo{}
	essays := &mockEssayRepo{}
	reports := &mockReportRepo{}
	aicl := &mockAIClient{}

	jobs.On("UpdateStatus", mock.Anything, "job-1", domain.JobProcessing, (*string)(nil)).Return(nil)
	essays.On("Get", mock.Anything, "essay-1").Return(domain.Essay{}, domain.ErrNotFound)
	jobs.On("UpdateStatus", mock.Anything, "job-1", domain.JobFailed, mock.MatchedBy(func(msg *string) bool {
		return msg != nil && *msg != ""
	})).Return(nil)

	h := redpanda.NewEvaluationHandler(jobs, essays, reports, aicl, report.DefaultRubric(), 2048)
	err := h.Handle(context.Background(), testPayload())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	jobs.AssertExpectations(t)
	aicl.AssertNotCalled(t, "ChatJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_EvaluatorErrorFailsJob(t *testing.T) {
	t.Parallel()
	jobs := &mockJobRepo{}
	essays := &mockEssayRepo{}
	reports := &mockReportRepo{}
	aicl := &mockAIClient{}

	jobs.On("UpdateStatus", mock.Anything, "job-1", domain.JobProcessing, (*string)(nil)).Return(nil)
	essays.On("Get", mock.Anything, "essay-1").Return(testEssay(), nil)
	aicl.On("ChatJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", domain.ErrUpstreamRateLimit)
	var failMsg string
	jobs.On("UpdateStatus", mock.Anything, "job-1", domain.JobFailed, mock.MatchedBy(func(msg *string) bool {
		if msg == nil {
			return false
		}
		failMsg = *msg
		return true
	})).Return(nil)

	h := redpanda.NewEvaluationHandler(jobs, essays, reports, aicl, report.DefaultRubric(), 2048)
	err := h.Handle(context.Background(), testPayload())
	require.Error(t, err)
	assert.Contains(t, failMsg, "rate limit")
	reports.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_MalformedEvaluationFailsJob(t *testing.T) {
	t.Parallel()
	jobs := &mockJobRepo{}
	essays := &mockEssayRepo{}
	reports := &mockReportRepo{}
	aicl := &mockAIClient{}

	jobs.On("UpdateStatus", mock.Anything, "job-1", domain.JobProcessing, (*string)(nil)).Return(nil)
	essays.On("Get", mock.Anything, "essay-1").Return(testEssay(), nil)
	aicl.On("ChatJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("I cannot evaluate this essay.", nil)
	jobs.On("UpdateStatus", mock.Anything, "job-1", domain.JobFailed, mock.MatchedBy(func(msg *string) bool {
		return msg != nil
	})).Return(nil)

	h := redpanda.NewEvaluationHandler(jobs, essays, reports, aicl, report.DefaultRubric(), 2048)
	err := h.Handle(context.Background(), testPayload())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestHandle_UpsertErrorFailsJob(t *testing.T) {
	t.Parallel()
	jobs := &mockJobRepo{}
	essays := &mockEssayRepo{}
	reports := &mockReportRepo{}
	aicl := &mockAIClient{}

	jobs.On("UpdateStatus", mock.Anything, "job-1", domain.JobProcessing, (*string)(nil)).Return(nil)
	essays.On("Get", mock.Anything, "essay-1").Return(testEssay(), nil)
	aicl.On("ChatJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(validEvaluation, nil)
	dbErr := errors.New("connection reset")
	reports.On("Upsert", mock.Anything, "job-1", mock.Anything).Return(dbErr)
	jobs.On("UpdateStatus", mock.Anything, "job-1", domain.JobFailed, mock.MatchedBy(func(msg *string) bool {
		return msg != nil
	})).Return(nil)

	h := redpanda.NewEvaluationHandler(jobs, essays, reports, aicl, report.DefaultRubric(), 2048)
	err := h.Handle(context.Background(), testPayload())
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
}
