// Package usecase contains application business logic services.
package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tutorstack/essay-tutor/internal/domain"
	"github.com/tutorstack/essay-tutor/pkg/textx"
)

// UploadService ingests sanitized essay texts and persists them.
type UploadService struct {
	Repo domain.EssayRepository
}

// NewUploadService constructs an UploadService with the given repo.
func NewUploadService(r domain.EssayRepository) UploadService { return UploadService{Repo: r} }

// IngestTyped normalizes a typed essay, detects an embedded prompt when none
// was supplied, validates non-empty content, and stores the essay.
func (s UploadService) IngestTyped(ctx domain.Context, text, prompt, filename string) (string, error) {
	text = textx.NormalizeText(textx.SanitizeText(text))
	if prompt == "" {
		prompt, text = DetectPrompt(text)
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty essay text", domain.ErrInvalidArgument)
	}
	e := domain.Essay{
		Source:    domain.EssaySourceTyped,
		Text:      text,
		Prompt:    strings.TrimSpace(prompt),
		Filename:  filename,
		MIME:      mimeFromName(filename),
		Size:      int64(len(text)),
		CreatedAt: time.Now().UTC(),
	}
	return s.Repo.Create(ctx, e)
}

// IngestScanned joins OCR page texts in page order, normalizes the result,
// and stores it as a scanned essay.
func (s UploadService) IngestScanned(ctx domain.Context, pageTexts []string, prompt, filename string) (string, error) {
	if len(pageTexts) == 0 {
		return "", fmt.Errorf("%w: no pages", domain.ErrInvalidArgument)
	}
	parts := make([]string, 0, len(pageTexts))
	for _, p := range pageTexts {
		p = strings.TrimSpace(textx.SanitizeText(p))
		if p != "" {
			parts = append(parts, p)
		}
	}
	text := textx.NormalizeText(strings.Join(parts, "\n\n"))
	if prompt == "" {
		prompt, text = DetectPrompt(text)
	}
	if text == "" {
		return "", fmt.Errorf("%w: no text recognized in pages", domain.ErrInvalidArgument)
	}
	e := domain.Essay{
		Source:    domain.EssaySourceScanned,
		Text:      text,
		Prompt:    strings.TrimSpace(prompt),
		Filename:  filename,
		MIME:      mimeFromName(filename),
		Size:      int64(len(text)),
		Pages:     len(pageTexts),
		CreatedAt: time.Now().UTC(),
	}
	return s.Repo.Create(ctx, e)
}

// Count returns the total number of stored essays.
func (s UploadService) Count(ctx domain.Context) (int64, error) {
	return s.Repo.Count(ctx)
}

var promptLineRe = regexp.MustCompile(`(?i)^\s*(?:essay\s+)?(?:prompt|topic|question)\s*[:\-]\s*(.+)$`)

// DetectPrompt checks whether the first non-empty line of the essay names the
// assignment prompt ("Prompt: ..." or "Topic: ..."). When it does, the line is
// stripped from the body and returned separately.
func DetectPrompt(text string) (prompt, body string) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if m := promptLineRe.FindStringSubmatch(line); m != nil {
			rest := strings.Join(lines[i+1:], "\n")
			return strings.TrimSpace(m[1]), strings.TrimSpace(rest)
		}
		break
	}
	return "", text
}

func mimeFromName(n string) string {
	n = strings.ToLower(n)
	switch {
	case strings.HasSuffix(n, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(n, ".jpg"), strings.HasSuffix(n, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(n, ".png"):
		return "image/png"
	default:
		return "text/plain"
	}
}
