package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tutorstack/essay-tutor/internal/domain"
)

// EssayRepo persists and loads essays using a minimal pgx pool.
type EssayRepo struct{ Pool PgxPool }

// NewEssayRepo constructs an EssayRepo with the given pool.
func NewEssayRepo(p PgxPool) *EssayRepo { return &EssayRepo{Pool: p} }

// Create stores a new essay and returns its id (generates one if empty).
func (r *EssayRepo) Create(ctx domain.Context, e domain.Essay) (string, error) {
	tracer := otel.Tracer("repo.essays")
	ctx, span := tracer.Start(ctx, "essays.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "essays"),
	)
	id := e.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO essays (id, source, text, prompt, filename, mime, size, pages, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.Pool.Exec(ctx, q, id, e.Source, e.Text, e.Prompt, e.Filename, e.MIME, e.Size, e.Pages, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=essay.create: %w", err)
	}
	return id, nil
}

// Get loads an essay by id or returns ErrNotFound.
func (r *EssayRepo) Get(ctx domain.Context, id string) (domain.Essay, error) {
	tracer := otel.Tracer("repo.essays")
	ctx, span := tracer.Start(ctx, "essays.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "essays"),
	)
	q := `SELECT id, source, text, prompt, filename, mime, size, pages, created_at FROM essays WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var e domain.Essay
	if err := row.Scan(&e.ID, &e.Source, &e.Text, &e.Prompt, &e.Filename, &e.MIME, &e.Size, &e.Pages, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Essay{}, fmt.Errorf("op=essay.get: %w", domain.ErrNotFound)
		}
		return domain.Essay{}, fmt.Errorf("op=essay.get: %w", err)
	}
	return e, nil
}

// Count returns the total number of essays.
func (r *EssayRepo) Count(ctx domain.Context) (int64, error) {
	tracer := otel.Tracer("repo.essays")
	ctx, span := tracer.Start(ctx, "essays.Count")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "COUNT"),
		attribute.String("db.sql.table", "essays"),
	)
	q := `SELECT COUNT(*) FROM essays`
	row := r.Pool.QueryRow(ctx, q)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("op=essay.count: %w", err)
	}
	return count, nil
}
