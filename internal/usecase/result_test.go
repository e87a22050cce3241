package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tutorstack/essay-tutor/internal/domain"
	"github.com/tutorstack/essay-tutor/internal/usecase"
)

func TestResult_Fetch_Queued(t *testing.T) {
	t.Parallel()
	jobs := &mockJobRepo{}
	now := time.Now().UTC()
	jobs.On("Get", mock.Anything, "job-1").Return(domain.Job{ID: "job-1", Status: domain.JobQueued, CreatedAt: now, UpdatedAt: now}, nil)

	svc := usecase.NewReportService(jobs, &mockReportRepo{})
	status, body, etag, err := svc.Fetch(context.Background(), "job-1", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "queued", body["status"])
	assert.NotEmpty(t, etag)
	assert.NotContains(t, body, "report")
}

func TestResult_Fetch_NotFound(t *testing.T) {
	t.Parallel()
	jobs := &mockJobRepo{}
	jobs.On("Get", mock.Anything, "nope").Return(domain.Job{}, domain.ErrNotFound)

	svc := usecase.NewReportService(jobs, &mockReportRepo{})
	_, _, _, err := svc.Fetch(context.Background(), "nope", "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResult_Fetch_StaleQueuedMarkedFailed(t *testing.T) {
	t.Parallel()
	jobs := &mockJobRepo{}
	old := time.Now().UTC().Add(-10 * time.Minute)
	jobs.On("Get", mock.Anything, "job-2").Return(domain.Job{ID: "job-2", Status: domain.JobQueued, CreatedAt: old, UpdatedAt: old}, nil)
	jobs.On("UpdateStatus", mock.Anything, "job-2", domain.JobFailed, mock.AnythingOfType("*string")).Return(nil)

	svc := usecase.NewReportService(jobs, &mockReportRepo{})
	status, body, _, err := svc.Fetch(context.Background(), "job-2", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "failed", body["status"])
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "UPSTREAM_TIMEOUT", errObj["code"])
	jobs.AssertExpectations(t)
}

func TestResult_Fetch_FreshProcessingNotStale(t *testing.T) {
	t.Parallel()
	jobs := &mockJobRepo{}
	now := time.Now().UTC()
	jobs.On("Get", mock.Anything, "job-3").Return(domain.Job{ID: "job-3", Status: domain.JobProcessing, CreatedAt: now.Add(-5 * time.Minute), UpdatedAt: now}, nil)

	svc := usecase.NewReportService(jobs, &mockReportRepo{})
	_, body, _, err := svc.Fetch(context.Background(), "job-3", "")
	require.NoError(t, err)
	assert.Equal(t, "processing", body["status"])
	jobs.AssertExpectations(t)
}

func TestResult_Fetch_Completed(t *testing.T) {
	t.Parallel()
	jobs := &mockJobRepo{}
	reports := &mockReportRepo{}
	now := time.Now().UTC()
	jobs.On("Get", mock.Anything, "job-4").Return(domain.Job{ID: "job-4", Status: domain.JobCompleted, CreatedAt: now, UpdatedAt: now}, nil)
	rep := domain.AnnotatedReport{EssayID: "es-1", OverallScore: 3.4}
	reports.On("GetByJobID", mock.Anything, "job-4").Return(rep, nil)

	svc := usecase.NewReportService(jobs, reports)
	status, body, etag, err := svc.Fetch(context.Background(), "job-4", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, rep, body["report"])
	assert.NotEmpty(t, etag)
}

func TestResult_Fetch_NotModified(t *testing.T) {
	t.Parallel()
	jobs := &mockJobRepo{}
	reports := &mockReportRepo{}
	now := time.Now().UTC()
	jobs.On("Get", mock.Anything, "job-5").Return(domain.Job{ID: "job-5", Status: domain.JobCompleted, CreatedAt: now, UpdatedAt: now}, nil)
	reports.On("GetByJobID", mock.Anything, "job-5").Return(domain.AnnotatedReport{EssayID: "es-1"}, nil)

	svc := usecase.NewReportService(jobs, reports)
	_, _, etag, err := svc.Fetch(context.Background(), "job-5", "")
	require.NoError(t, err)

	status, body, etag2, err := svc.Fetch(context.Background(), "job-5", etag)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, status)
	assert.Nil(t, body)
	assert.Equal(t, etag, etag2)
}

func TestResult_Fetch_FailedJobErrorCode(t *testing.T) {
	t.Parallel()
	jobs := &mockJobRepo{}
	now := time.Now().UTC()
	jobs.On("Get", mock.Anything, "job-6").Return(domain.Job{ID: "job-6", Status: domain.JobFailed, Error: "schema invalid: scores out of range", CreatedAt: now, UpdatedAt: now}, nil)

	svc := usecase.NewReportService(jobs, &mockReportRepo{})
	_, body, _, err := svc.Fetch(context.Background(), "job-6", "")
	require.NoError(t, err)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "SCHEMA_INVALID", errObj["code"])
}
