package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tutorstack/essay-tutor/internal/observability"
	"github.com/tutorstack/essay-tutor/internal/domain"
)

// staleAfter bounds how long a queued or processing job may sit before a
// status poll marks it failed. Generous enough for real model latency.
const staleAfter = 2 * time.Minute

// ReportService provides read access to evaluation reports and assembles the
// API response envelope including ETag logic and error mapping.
type ReportService struct {
	Jobs    domain.JobRepository
	Reports domain.ReportRepository
}

// NewReportService constructs a ReportService with the given repositories.
func NewReportService(j domain.JobRepository, r domain.ReportRepository) ReportService {
	return ReportService{Jobs: j, Reports: r}
}

// Fetch returns the HTTP status code, response body, and ETag for the given
// job id. It implements conditional responses (304 Not Modified) based on
// If-None-Match and returns status-only shapes for queued/processing/failed.
func (s ReportService) Fetch(ctx domain.Context, id, ifNoneMatch string) (int, map[string]any, string, error) {
	lg := observability.LoggerFromContext(ctx)
	job, err := s.Jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil, "", fmt.Errorf("%w: job not found", domain.ErrNotFound)
		}
		return 0, nil, "", err
	}
	if job.Status != domain.JobCompleted {
		now := time.Now().UTC()
		stale := (job.Status == domain.JobQueued && now.Sub(job.CreatedAt) > staleAfter) ||
			(job.Status == domain.JobProcessing && now.Sub(job.UpdatedAt) > staleAfter)
		if stale {
			lg.Warn("job marked stale",
				"job_id", id,
				"status", string(job.Status),
				"age", now.Sub(job.CreatedAt).String())
			msg := fmt.Sprintf("timeout: job exceeded %s", staleAfter)
			_ = s.Jobs.UpdateStatus(ctx, id, domain.JobFailed, &msg)
			job.Status = domain.JobFailed
			job.Error = msg
		}
		m := map[string]any{"id": id, "status": string(job.Status)}
		if job.Status == domain.JobFailed {
			m["error"] = map[string]any{
				"code":    errorCodeFromJobError(job.Error),
				"message": job.Error,
			}
		}
		etag := makeETag(m)
		if etag == ifNoneMatch {
			return http.StatusNotModified, nil, etag, nil
		}
		return http.StatusOK, m, etag, nil
	}
	rep, err := s.Reports.GetByJobID(ctx, id)
	if err != nil {
		return 0, nil, "", err
	}
	m := map[string]any{
		"id":     id,
		"status": string(domain.JobCompleted),
		"report": rep,
	}
	etag := makeETag(m)
	if etag == ifNoneMatch {
		return http.StatusNotModified, nil, etag, nil
	}
	return http.StatusOK, m, etag, nil
}

func makeETag(v any) string {
	b, _ := json.Marshal(v)
	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// errorCodeFromJobError maps a stored job error message to a stable code.
func errorCodeFromJobError(msg string) string {
	s := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case strings.Contains(s, "schema invalid"), strings.Contains(s, "invalid json"), strings.Contains(s, "empty"):
		return "SCHEMA_INVALID"
	case strings.Contains(s, "rate limit"):
		return "UPSTREAM_RATE_LIMIT"
	case strings.Contains(s, "timeout"), strings.Contains(s, "deadline exceeded"):
		return "UPSTREAM_TIMEOUT"
	case strings.Contains(s, "not found"):
		return "NOT_FOUND"
	case strings.Contains(s, "invalid argument"):
		return "INVALID_ARGUMENT"
	default:
		return "INTERNAL"
	}
}
