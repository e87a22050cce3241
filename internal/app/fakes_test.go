package app_test

import (
	"github.com/tutorstack/essay-tutor/internal/domain"
	"github.com/tutorstack/essay-tutor/internal/usecase"
)

// Minimal in-memory fakes so router tests exercise real handlers.

type memEssayRepo struct{ essays map[string]domain.Essay }

func (m *memEssayRepo) Create(_ domain.Context, e domain.Essay) (string, error) {
	if e.ID == "" {
		e.ID = "essay-1"
	}
	m.essays[e.ID] = e
	return e.ID, nil
}

func (m *memEssayRepo) Get(_ domain.Context, id string) (domain.Essay, error) {
	e, ok := m.essays[id]
	if !ok {
		return domain.Essay{}, domain.ErrNotFound
	}
	return e, nil
}

func (m *memEssayRepo) Count(_ domain.Context) (int64, error) { return int64(len(m.essays)), nil }

type memJobRepo struct{ jobs map[string]domain.Job }

func (m *memJobRepo) Create(_ domain.Context, j domain.Job) (string, error) {
	if j.ID == "" {
		j.ID = "job-1"
	}
	m.jobs[j.ID] = j
	return j.ID, nil
}

func (m *memJobRepo) UpdateStatus(_ domain.Context, id string, status domain.JobStatus, errMsg *string) error {
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = status
	if errMsg != nil {
		j.Error = *errMsg
	}
	m.jobs[id] = j
	return nil
}

func (m *memJobRepo) Get(_ domain.Context, id string) (domain.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return j, nil
}

func (m *memJobRepo) FindByIdempotencyKey(_ domain.Context, key string) (domain.Job, error) {
	for _, j := range m.jobs {
		if j.IdemKey != nil && *j.IdemKey == key {
			return j, nil
		}
	}
	return domain.Job{}, domain.ErrNotFound
}

type memReportRepo struct{ reports map[string]domain.AnnotatedReport }

func (m *memReportRepo) Upsert(_ domain.Context, jobID string, r domain.AnnotatedReport) error {
	m.reports[jobID] = r
	return nil
}

func (m *memReportRepo) GetByJobID(_ domain.Context, jobID string) (domain.AnnotatedReport, error) {
	r, ok := m.reports[jobID]
	if !ok {
		return domain.AnnotatedReport{}, domain.ErrNotFound
	}
	return r, nil
}

type memQueue struct{}

func (memQueue) EnqueueEvaluate(_ domain.Context, p domain.EvaluateTaskPayload) (string, error) {
	return p.JobID, nil
}

func testUploadService() usecase.UploadService {
	return usecase.NewUploadService(&memEssayRepo{essays: map[string]domain.Essay{}})
}

func testEvaluateService() usecase.EvaluateService {
	return usecase.NewEvaluateService(
		&memJobRepo{jobs: map[string]domain.Job{}},
		memQueue{},
		&memEssayRepo{essays: map[string]domain.Essay{}})
}

func testReportService() usecase.ReportService {
	return usecase.NewReportService(
		&memJobRepo{jobs: map[string]domain.Job{}},
		&memReportRepo{reports: map[string]domain.AnnotatedReport{}})
}
