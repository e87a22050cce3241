package usecase

import (
	"fmt"
	"time"

	"github.com/tutorstack/essay-tutor/internal/domain"
)

// EvaluateService orchestrates job creation and queueing for evaluation.
type EvaluateService struct {
	Jobs   domain.JobRepository
	Queue  domain.Queue
	Essays domain.EssayRepository
}

// NewEvaluateService constructs an EvaluateService with its dependencies.
func NewEvaluateService(j domain.JobRepository, q domain.Queue, e domain.EssayRepository) EvaluateService {
	return EvaluateService{Jobs: j, Queue: q, Essays: e}
}

// Enqueue validates the essay exists, creates a job, and enqueues the
// evaluation task. A repeated Idempotency-Key returns the original job.
func (s EvaluateService) Enqueue(ctx domain.Context, essayID, rubricID, idemKey string) (string, error) {
	if essayID == "" {
		return "", fmt.Errorf("%w: essay_id required", domain.ErrInvalidArgument)
	}
	if idemKey != "" {
		if j, err := s.Jobs.FindByIdempotencyKey(ctx, idemKey); err == nil && j.ID != "" {
			return j.ID, nil
		}
	}
	if _, err := s.Essays.Get(ctx, essayID); err != nil {
		return "", fmt.Errorf("essay lookup: %w", err)
	}
	j := domain.Job{
		Status:    domain.JobQueued,
		EssayID:   essayID,
		RubricID:  rubricID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if idemKey != "" {
		j.IdemKey = &idemKey
	}
	jobID, err := s.Jobs.Create(ctx, j)
	if err != nil {
		return "", err
	}
	payload := domain.EvaluateTaskPayload{JobID: jobID, EssayID: essayID, RubricID: rubricID}
	if _, err := s.Queue.EnqueueEvaluate(ctx, payload); err != nil {
		_ = s.Jobs.UpdateStatus(ctx, jobID, domain.JobFailed, ptr("enqueue failed"))
		return "", err
	}
	return jobID, nil
}

func ptr(s string) *string { return &s }
