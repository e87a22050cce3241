package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tutorstack/essay-tutor/internal/domain"
)

// ParseEvaluation decodes raw evaluator output into an EvaluationResult.
// It is deliberately forgiving: collections may be null, scores are clamped
// to [0, scale], and unknown severities or feedback types are coerced to
// safe defaults. Only undecodable JSON is an error.
func ParseEvaluation(raw string, scale float64) (domain.EvaluationResult, error) {
	cleaned := CleanJSON(raw)
	var res domain.EvaluationResult
	if err := json.Unmarshal([]byte(cleaned), &res); err != nil {
		return domain.EvaluationResult{}, fmt.Errorf("%w: evaluator output is not valid json: %v", domain.ErrSchemaInvalid, err)
	}

	if res.Scores == nil {
		res.Scores = map[domain.Category]float64{}
	}
	norm := make(map[domain.Category]float64, len(res.Scores))
	for cat, score := range res.Scores {
		if score < 0 {
			score = 0
		}
		if scale > 0 && score > scale {
			score = scale
		}
		norm[normalizeCategory(cat)] = score
	}
	res.Scores = norm

	for i := range res.Annotations {
		a := &res.Annotations[i]
		a.Category = normalizeCategory(a.Category)
		a.Severity = normalizeSeverity(a.Severity, a.Category)
		a.Excerpt = strings.TrimSpace(a.Excerpt)
	}
	for i := range res.Feedback {
		f := &res.Feedback[i]
		f.Category = normalizeCategory(f.Category)
		f.Type = normalizeFeedbackType(f.Type)
	}
	if res.Annotations == nil {
		res.Annotations = []domain.AnnotationRecord{}
	}
	if res.Feedback == nil {
		res.Feedback = []domain.FeedbackItem{}
	}
	if res.ParagraphFeedback == nil {
		res.ParagraphFeedback = []domain.ParagraphFeedback{}
	}
	return res, nil
}

func normalizeCategory(c domain.Category) domain.Category {
	return domain.Category(strings.ToLower(strings.TrimSpace(string(c))))
}

func normalizeSeverity(s domain.Severity, cat domain.Category) domain.Severity {
	switch domain.Severity(strings.ToLower(strings.TrimSpace(string(s)))) {
	case domain.SeverityMinor:
		return domain.SeverityMinor
	case domain.SeverityModerate:
		return domain.SeverityModerate
	case domain.SeverityMajor:
		return domain.SeverityMajor
	case domain.SeverityPositive:
		return domain.SeverityPositive
	}
	if cat == domain.CategoryStrengths {
		return domain.SeverityPositive
	}
	return domain.SeverityModerate
}

func normalizeFeedbackType(t domain.FeedbackType) domain.FeedbackType {
	switch domain.FeedbackType(strings.ToLower(strings.TrimSpace(string(t)))) {
	case domain.FeedbackStrength:
		return domain.FeedbackStrength
	case domain.FeedbackImprovement:
		return domain.FeedbackImprovement
	case domain.FeedbackSuggestion:
		return domain.FeedbackSuggestion
	}
	return domain.FeedbackSuggestion
}
