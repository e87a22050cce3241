package ai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorstack/essay-tutor/internal/adapter/ai"
	"github.com/tutorstack/essay-tutor/internal/domain"
)

func TestParseEvaluation_WellFormed(t *testing.T) {
	t.Parallel()
	raw := `{
		"scores": {"grammar": 4, "clarity": 3.5},
		"annotations": [
			{"category": "grammar", "original_excerpt": "He go", "explanation": "Subject-verb agreement.", "suggested_replacement": "He goes", "severity": "major"}
		],
		"feedback": [
			{"category": "grammar", "type": "improvement", "title": "Verb forms", "body": "Review third-person verbs."}
		],
		"paragraph_feedback": [{"paragraph": 1, "comment": "Good hook."}]
	}`
	res, err := ai.ParseEvaluation(raw, 5)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, res.Scores[domain.CategoryGrammar], 1e-9)
	require.Len(t, res.Annotations, 1)
	assert.Equal(t, domain.SeverityMajor, res.Annotations[0].Severity)
	assert.Equal(t, "He go", res.Annotations[0].Excerpt)
	require.Len(t, res.Feedback, 1)
	assert.Equal(t, domain.FeedbackImprovement, res.Feedback[0].Type)
}

func TestParseEvaluation_MarkdownWrapped(t *testing.T) {
	t.Parallel()
	raw := "```json\n{\"scores\": {\"grammar\": 2}}\n```"
	res, err := ai.ParseEvaluation(raw, 5)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Scores[domain.CategoryGrammar], 1e-9)
	assert.NotNil(t, res.Annotations)
	assert.NotNil(t, res.Feedback)
}

func TestParseEvaluation_ClampsScores(t *testing.T) {
	t.Parallel()
	raw := `{"scores": {"grammar": 9.5, "clarity": -1}}`
	res, err := ai.ParseEvaluation(raw, 5)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, res.Scores[domain.CategoryGrammar], 1e-9)
	assert.InDelta(t, 0.0, res.Scores[domain.CategoryClarity], 1e-9)
}

func TestParseEvaluation_NormalizesVocabulary(t *testing.T) {
	t.Parallel()
	raw := `{
		"scores": {"Grammar": 3},
		"annotations": [
			{"category": "STRENGTHS", "original_excerpt": " nice phrase ", "explanation": "x", "severity": "great"}
		],
		"feedback": [{"category": "grammar", "type": "unknown", "title": "t", "body": "b"}]
	}`
	res, err := ai.ParseEvaluation(raw, 5)
	require.NoError(t, err)
	assert.Contains(t, res.Scores, domain.CategoryGrammar)
	require.Len(t, res.Annotations, 1)
	assert.Equal(t, domain.CategoryStrengths, res.Annotations[0].Category)
	// Unknown severity on a strengths annotation defaults to positive.
	assert.Equal(t, domain.SeverityPositive, res.Annotations[0].Severity)
	assert.Equal(t, "nice phrase", res.Annotations[0].Excerpt)
	assert.Equal(t, domain.FeedbackSuggestion, res.Feedback[0].Type)
}

func TestParseEvaluation_UnknownSeverityDefaultsModerate(t *testing.T) {
	t.Parallel()
	raw := `{"annotations": [{"category": "grammar", "original_excerpt": "x", "explanation": "y", "severity": "catastrophic"}]}`
	res, err := ai.ParseEvaluation(raw, 5)
	require.NoError(t, err)
	require.Len(t, res.Annotations, 1)
	assert.Equal(t, domain.SeverityModerate, res.Annotations[0].Severity)
}

func TestParseEvaluation_InvalidJSON(t *testing.T) {
	t.Parallel()
	_, err := ai.ParseEvaluation("I cannot evaluate this essay.", 5)
	require.ErrorIs(t, err, domain.ErrSchemaInvalid)
}
