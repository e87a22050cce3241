package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/tutorstack/essay-tutor/internal/domain"
)

// ReportRepo persists assembled reports as JSONB documents keyed by job id.
// The report is write-once per job in practice but Upsert keeps reprocessing
// after a worker crash idempotent.
type ReportRepo struct{ Pool PgxPool }

// NewReportRepo constructs a ReportRepo with the given pool.
func NewReportRepo(p PgxPool) *ReportRepo { return &ReportRepo{Pool: p} }

// Upsert inserts or replaces the report for a job.
func (r *ReportRepo) Upsert(ctx domain.Context, jobID string, rep domain.AnnotatedReport) error {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.Upsert")
	defer span.End()
	doc, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("op=report.upsert: marshal: %w", err)
	}
	q := `INSERT INTO reports (job_id, essay_id, overall_score, report, created_at)
	VALUES ($1,$2,$3,$4,$5)
	ON CONFLICT (job_id)
	DO UPDATE SET essay_id=EXCLUDED.essay_id, overall_score=EXCLUDED.overall_score, report=EXCLUDED.report`
	_, err = r.Pool.Exec(ctx, q, jobID, rep.EssayID, rep.OverallScore, doc, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=report.upsert: %w", err)
	}
	return nil
}

// GetByJobID loads the report for a job or returns ErrNotFound.
func (r *ReportRepo) GetByJobID(ctx domain.Context, jobID string) (domain.AnnotatedReport, error) {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.GetByJobID")
	defer span.End()
	q := `SELECT report FROM reports WHERE job_id=$1`
	row := r.Pool.QueryRow(ctx, q, jobID)
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AnnotatedReport{}, fmt.Errorf("op=report.get: %w", domain.ErrNotFound)
		}
		return domain.AnnotatedReport{}, fmt.Errorf("op=report.get: %w", err)
	}
	var rep domain.AnnotatedReport
	if err := json.Unmarshal(doc, &rep); err != nil {
		return domain.AnnotatedReport{}, fmt.Errorf("op=report.get: unmarshal: %w", err)
	}
	return rep, nil
}
