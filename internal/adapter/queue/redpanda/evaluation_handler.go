package redpanda

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/tutorstack/essay-tutor/internal/adapter/ai"
	metrics "github.com/tutorstack/essay-tutor/internal/adapter/observability"
	"github.com/tutorstack/essay-tutor/internal/domain"
	"github.com/tutorstack/essay-tutor/internal/observability"
	"github.com/tutorstack/essay-tutor/internal/report"
)

// evalTimeout bounds one evaluation including model retries.
const evalTimeout = 5 * time.Minute

// EvaluationHandler runs one evaluation job end to end: load essay, call
// the evaluator, parse the result, build the annotated report, persist it.
type EvaluationHandler struct {
	Jobs      domain.JobRepository
	Essays    domain.EssayRepository
	Reports   domain.ReportRepository
	AI        domain.AIClient
	Rubric    report.Rubric
	MaxTokens int
}

// NewEvaluationHandler constructs an EvaluationHandler.
func NewEvaluationHandler(jobs domain.JobRepository, essays domain.EssayRepository, reports domain.ReportRepository, aicl domain.AIClient, rubric report.Rubric, maxTokens int) *EvaluationHandler {
	return &EvaluationHandler{Jobs: jobs, Essays: essays, Reports: reports, AI: aicl, Rubric: rubric, MaxTokens: maxTokens}
}

// Handle processes one evaluation task. Evaluator data-shape anomalies
// degrade inside the report pipeline; only infrastructure and schema
// failures fail the job.
func (h *EvaluationHandler) Handle(ctx context.Context, payload domain.EvaluateTaskPayload) error {
	tracer := otel.Tracer("queue.handler")
	ctx, span := tracer.Start(ctx, "HandleEvaluate")
	defer span.End()

	lg := observability.LoggerFromContext(ctx).With(
		slog.String("job_id", payload.JobID),
		slog.String("essay_id", payload.EssayID),
	)

	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	if err := h.Jobs.UpdateStatus(ctx, payload.JobID, domain.JobProcessing, nil); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	metrics.StartProcessingJob("evaluate")

	essay, err := h.Essays.Get(ctx, payload.EssayID)
	if err != nil {
		return h.fail(ctx, lg, payload.JobID, fmt.Errorf("get essay: %w", err))
	}

	sys := ai.SystemPrompt(h.Rubric)
	usr := ai.UserPrompt(essay, h.Rubric)
	lg.Info("calling evaluator", slog.Int("essay_bytes", len(essay.Text)))
	raw, err := h.AI.ChatJSON(ctx, sys, usr, h.MaxTokens)
	if err != nil {
		return h.fail(ctx, lg, payload.JobID, fmt.Errorf("evaluator call: %w", err))
	}

	result, err := ai.ParseEvaluation(raw, h.Rubric.Scale)
	if err != nil {
		return h.fail(ctx, lg, payload.JobID, fmt.Errorf("parse evaluation: %w", err))
	}

	rep, err := report.Generate(essay, result, h.Rubric, time.Now().UTC())
	if err != nil {
		return h.fail(ctx, lg, payload.JobID, fmt.Errorf("generate report: %w", err))
	}

	// Store the report first so a completed job always has one.
	if err := h.Reports.Upsert(ctx, payload.JobID, rep); err != nil {
		return h.fail(ctx, lg, payload.JobID, fmt.Errorf("store report: %w", err))
	}
	if err := h.Jobs.UpdateStatus(ctx, payload.JobID, domain.JobCompleted, nil); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}

	metrics.CompleteJob("evaluate")
	metrics.ObserveReport(rep.OverallScore, rep.DroppedAnnotations)
	lg.Info("job completed",
		slog.Float64("overall_score", rep.OverallScore),
		slog.Int("annotations", len(rep.Annotations)),
		slog.Int("dropped_annotations", rep.DroppedAnnotations))
	return nil
}

func (h *EvaluationHandler) fail(ctx context.Context, lg *slog.Logger, jobID string, err error) error {
	lg.Error("evaluate task failed", slog.Any("error", err))
	msg := err.Error()
	if uerr := h.Jobs.UpdateStatus(ctx, jobID, domain.JobFailed, &msg); uerr != nil {
		lg.Error("failed to mark job failed", slog.Any("error", uerr))
	}
	metrics.FailJob("evaluate")
	return err
}
