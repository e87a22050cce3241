package httpserver

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tutorstack/essay-tutor/internal/config"
	"github.com/tutorstack/essay-tutor/internal/domain"
	"github.com/tutorstack/essay-tutor/internal/usecase"
	"github.com/tutorstack/essay-tutor/pkg/textx"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Essays     usecase.UploadService
	Evaluate   usecase.EvaluateService
	Reports    usecase.ReportService
	Extractor  domain.TextExtractor
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	KafkaCheck func(ctx context.Context) error
	TikaCheck  func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, essays usecase.UploadService, eval usecase.EvaluateService, reports usecase.ReportService, extractor domain.TextExtractor, dbCheck, redisCheck, kafkaCheck, tikaCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Essays: essays, Evaluate: eval, Reports: reports, Extractor: extractor, DBCheck: dbCheck, RedisCheck: redisCheck, KafkaCheck: kafkaCheck, TikaCheck: tikaCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// allowedExt enforces the upload allowlist: typed text or photographed pages.
func allowedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".pdf", ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func allowedMIME(m, filename string) bool {
	m = strings.ToLower(m)
	// .txt from rich editors is sometimes sniffed as text/html
	if strings.HasSuffix(strings.ToLower(filename), ".txt") && strings.HasPrefix(m, "text/") {
		return true
	}
	switch {
	case strings.HasPrefix(m, "text/plain"):
		return true
	case m == "application/pdf", m == "image/jpeg", m == "image/png":
		return true
	}
	return false
}

// extractPageText runs one uploaded page through the extractor (Tika, which
// OCRs images) via a temp file.
func extractPageText(ctx context.Context, extractor domain.TextExtractor, h *multipart.FileHeader, data []byte) (string, error) {
	if extractor == nil {
		return "", fmt.Errorf("%w: scanned pages require extractor", domain.ErrInvalidArgument)
	}
	tmp, err := os.CreateTemp("", "page-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()); _ = tmp.Close() }()
	if _, err := tmp.Write(data); err != nil {
		return "", err
	}
	return extractor.ExtractPath(ctx, h.Filename, tmp.Name())
}

// UploadHandler ingests one essay: either a typed `text` field, a single
// `essay` text file, or one or more photographed `pages` processed in
// page order.
func (s *Server) UploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "payload too large", Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB}}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		ctx := r.Context()
		prompt := r.FormValue("prompt")

		// Typed essay text posted directly.
		if text := r.FormValue("text"); text != "" {
			id, err := s.Essays.IngestTyped(ctx, text, prompt, "")
			if err != nil {
				writeError(w, r, fmt.Errorf("essay ingest: %w", err), nil)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"essay_id": id})
			return
		}

		// Single typed file.
		if file, header, err := r.FormFile("essay"); err == nil {
			defer func() { _ = file.Close() }()
			data, err := io.ReadAll(file)
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: essay read: %v", domain.ErrInvalidArgument, err), nil)
				return
			}
			if !allowedExt(header.Filename) || !allowedMIME(mimetype.Detect(data).String(), header.Filename) {
				writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "unsupported media type for essay", Details: map[string]any{"filename": header.Filename}}})
				return
			}
			text := textx.SanitizeText(string(data))
			switch strings.ToLower(filepath.Ext(header.Filename)) {
			case ".pdf":
				if text, err = extractPageText(ctx, s.Extractor, header, data); err != nil {
					writeError(w, r, fmt.Errorf("%w: essay extract: %v", domain.ErrInvalidArgument, err), nil)
					return
				}
			case ".jpg", ".jpeg", ".png":
				// A photographed page posted under `essay` still needs OCR;
				// raw image bytes are not essay text.
				pageText, err := extractPageText(ctx, s.Extractor, header, data)
				if err != nil {
					writeError(w, r, fmt.Errorf("%w: essay extract: %v", domain.ErrInvalidArgument, err), nil)
					return
				}
				id, err := s.Essays.IngestScanned(ctx, []string{pageText}, prompt, header.Filename)
				if err != nil {
					writeError(w, r, fmt.Errorf("essay ingest: %w", err), nil)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"essay_id": id, "pages": 1})
				return
			}
			id, err := s.Essays.IngestTyped(ctx, text, prompt, header.Filename)
			if err != nil {
				writeError(w, r, fmt.Errorf("essay ingest: %w", err), nil)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"essay_id": id})
			return
		}

		// Photographed pages, processed sequentially in filename order.
		pages := r.MultipartForm.File["pages"]
		if len(pages) == 0 {
			writeError(w, r, fmt.Errorf("%w: text, essay file, or pages required", domain.ErrInvalidArgument), map[string]string{"field": "pages"})
			return
		}
		if len(pages) > s.Cfg.MaxPages {
			writeError(w, r, fmt.Errorf("%w: too many pages (max %d)", domain.ErrInvalidArgument, s.Cfg.MaxPages), nil)
			return
		}
		sort.SliceStable(pages, func(i, j int) bool { return pages[i].Filename < pages[j].Filename })

		pageTexts := make([]string, 0, len(pages))
		for _, header := range pages {
			file, err := header.Open()
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: page open: %v", domain.ErrInvalidArgument, err), nil)
				return
			}
			data, err := io.ReadAll(file)
			_ = file.Close()
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: page read: %v", domain.ErrInvalidArgument, err), nil)
				return
			}
			if !allowedExt(header.Filename) || !allowedMIME(mimetype.Detect(data).String(), header.Filename) {
				writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "unsupported media type for page", Details: map[string]any{"filename": header.Filename}}})
				return
			}
			text, err := extractPageText(ctx, s.Extractor, header, data)
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: page extract: %v", domain.ErrInvalidArgument, err), nil)
				return
			}
			pageTexts = append(pageTexts, text)
		}

		id, err := s.Essays.IngestScanned(ctx, pageTexts, prompt, pages[0].Filename)
		if err != nil {
			writeError(w, r, fmt.Errorf("essay ingest: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"essay_id": id, "pages": len(pages)})
	}
}

// EvaluateHandler enqueues an evaluation job.
func (s *Server) EvaluateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Cap body size to prevent abuse
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req struct {
			EssayID  string `json:"essay_id" validate:"required"`
			RubricID string `json:"rubric_id" validate:"max=64"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			verrs := map[string]string{}
			if ve, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range ve {
					verrs[strings.ToLower(fe.Field())] = fe.Tag()
				}
			}
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
			return
		}
		jobID, err := s.Evaluate.Enqueue(r.Context(), req.EssayID, req.RubricID, r.Header.Get("Idempotency-Key"))
		if err != nil {
			writeError(w, r, fmt.Errorf("enqueue: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": jobID, "status": string(domain.JobQueued)})
	}
}

// ReportHandler returns job status and the annotated report when completed.
func (s *Server) ReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		status, body, etag, err := s.Reports.Fetch(r.Context(), id, r.Header.Get("If-None-Match"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("ETag", etag)
		if status == http.StatusNotModified {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, status, body)
	}
}

// StatsHandler reports intake counters for the admin surface.
func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.Essays.Count(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"essays": n})
	}
}

// ReadyzHandler probes DB, Redis, Kafka, and Tika.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"db", s.DBCheck},
			{"redis", s.RedisCheck},
			{"kafka", s.KafkaCheck},
			{"tika", s.TikaCheck},
		}
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				checks = append(checks, check{Name: p.name, OK: false, Details: err.Error()})
				ok = false
			} else {
				checks = append(checks, check{Name: p.name, OK: true})
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
