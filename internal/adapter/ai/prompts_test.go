package ai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tutorstack/essay-tutor/internal/adapter/ai"
	"github.com/tutorstack/essay-tutor/internal/domain"
	"github.com/tutorstack/essay-tutor/internal/report"
)

func TestSystemPrompt_ListsRubricCategories(t *testing.T) {
	t.Parallel()
	p := ai.SystemPrompt(report.DefaultRubric())
	assert.Contains(t, p, "grammar")
	assert.Contains(t, p, "strengths")
	assert.Contains(t, p, "original_excerpt")
	assert.Contains(t, p, "0-5")
}

func TestUserPrompt_IncludesAssignmentPrompt(t *testing.T) {
	t.Parallel()
	essay := domain.Essay{Text: "Body text.", Prompt: "Is homework useful?"}
	p := ai.UserPrompt(essay, report.DefaultRubric())
	assert.Contains(t, p, "Is homework useful?")
	assert.Contains(t, p, "Body text.")
}

func TestUserPrompt_NoPrompt(t *testing.T) {
	t.Parallel()
	p := ai.UserPrompt(domain.Essay{Text: "Body."}, report.DefaultRubric())
	assert.NotContains(t, p, "Assignment prompt")
	assert.Contains(t, p, "Body.")
}
