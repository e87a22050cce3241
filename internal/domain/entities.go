// Package domain defines the core entities, error taxonomy, and ports of the
// essay tutor service. Adapters and usecases depend on this package only.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// EssaySource enumerates how the essay text entered the system.
const (
	EssaySourceTyped   = "typed"
	EssaySourceScanned = "scanned"
)

// Essay is the canonical text under evaluation plus intake metadata.
// Invariants: Text is sanitized, normalized, and immutable once an
// evaluation job references it; Pages counts the uploaded images for
// scanned essays and is zero for typed ones.
type Essay struct {
	ID        string
	Source    string
	Text      string
	Prompt    string
	Filename  string
	MIME      string
	Size      int64
	Pages     int
	CreatedAt time.Time
}

// JobStatus enumerates evaluation job states.
type JobStatus string

// Job states.
const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job tracks one evaluation request from enqueue to report.
type Job struct {
	ID        string
	Status    JobStatus
	Error     string
	EssayID   string
	RubricID  string
	IdemKey   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repositories (ports)

// EssayRepository persists canonical essays.
type EssayRepository interface {
	Create(ctx Context, e Essay) (string, error)
	Get(ctx Context, id string) (Essay, error)
	Count(ctx Context) (int64, error)
}

// JobRepository persists evaluation jobs.
type JobRepository interface {
	Create(ctx Context, j Job) (string, error)
	UpdateStatus(ctx Context, id string, status JobStatus, errMsg *string) error
	Get(ctx Context, id string) (Job, error)
	FindByIdempotencyKey(ctx Context, key string) (Job, error)
}

// ReportRepository persists assembled reports keyed by job id.
type ReportRepository interface {
	Upsert(ctx Context, jobID string, r AnnotatedReport) error
	GetByJobID(ctx Context, jobID string) (AnnotatedReport, error)
}

// Queue (port)

// Queue enqueues evaluation tasks for the worker.
type Queue interface {
	EnqueueEvaluate(ctx Context, payload EvaluateTaskPayload) (string, error)
}

// AIClient (port)

// AIClient calls the external evaluator model. ChatJSON returns raw model
// output that is expected, but not guaranteed, to be a JSON document
// matching the evaluation schema.
type AIClient interface {
	ChatJSON(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// TextExtractor (port)
// ExtractPath extracts plain text from a file at path (typed documents or
// photographed pages via OCR). Implementations may call external services.
type TextExtractor interface {
	ExtractPath(ctx Context, fileName, path string) (string, error)
}

// EvaluateTaskPayload is the queue message for one evaluation job.
type EvaluateTaskPayload struct {
	JobID    string `json:"job_id"`
	EssayID  string `json:"essay_id"`
	RubricID string `json:"rubric_id"`
}

// Context aliases context.Context so entity and port signatures stay
// compact; adapters pass standard contexts through unchanged.
type Context = context.Context
