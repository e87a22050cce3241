package domain

import "time"

// Category identifies a rubric scoring/annotation category. The set of
// known categories is closed; evaluator output naming anything else is
// mapped to a neutral fallback rather than rejected.
type Category string

// Known categories.
const (
	CategoryGrammar     Category = "grammar"
	CategoryVocabulary  Category = "vocabulary"
	CategoryStructure   Category = "structure"
	CategoryDevelopment Category = "development"
	CategoryClarity     Category = "clarity"
	CategoryStrengths   Category = "strengths"
)

// Severity grades an annotation.
type Severity string

// Severity levels.
const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityPositive Severity = "positive"
)

// FeedbackType distinguishes prose feedback kinds.
type FeedbackType string

// Feedback types.
const (
	FeedbackStrength    FeedbackType = "strength"
	FeedbackImprovement FeedbackType = "improvement"
	FeedbackSuggestion  FeedbackType = "suggestion"
)

// AnnotationRecord is one localized piece of feedback as returned by the
// evaluator. OriginalExcerpt is unverified free text: it may not occur in
// the essay at all, may occur several times, and may duplicate another
// record. The locator treats all of that as ordinary input.
type AnnotationRecord struct {
	Category    Category `json:"category"`
	Excerpt     string   `json:"original_excerpt"`
	Explanation string   `json:"explanation"`
	Suggestion  string   `json:"suggested_replacement,omitempty"`
	Severity    Severity `json:"severity"`
}

// ResolvedAnnotation is an AnnotationRecord pinned to a byte range of the
// essay text. Start/End form a half-open interval with
// 0 <= Start < End <= len(text). Marker is category prefix plus the
// 1-based rank of the annotation among its category in document order,
// unique within one report. Immutable once created.
type ResolvedAnnotation struct {
	AnnotationRecord
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Marker string `json:"marker"`
}

// TextSegment is a run of essay text carrying zero or more annotation
// markers. The ordered segments of a report are contiguous and exhaustive:
// they concatenate back to the exact essay text with no gaps or overlaps.
type TextSegment struct {
	Text    string   `json:"text"`
	Start   int      `json:"start"`
	End     int      `json:"end"`
	Markers []string `json:"markers,omitempty"`
}

// FeedbackItem is one unit of category-level prose feedback from the
// evaluator.
type FeedbackItem struct {
	Category Category     `json:"category"`
	Type     FeedbackType `json:"type"`
	Title    string       `json:"title"`
	Body     string       `json:"body"`
}

// FeedbackBlock groups feedback items of one (category, type) pair with
// display metadata and the inline markers they relate to.
type FeedbackBlock struct {
	Category     Category       `json:"category"`
	Type         FeedbackType   `json:"type"`
	CategoryName string         `json:"category_name"`
	Color        string         `json:"color"`
	Priority     int            `json:"priority"`
	Items        []FeedbackItem `json:"items"`
	Markers      []string       `json:"markers,omitempty"`
}

// ParagraphFeedback is evaluator commentary on a whole paragraph.
type ParagraphFeedback struct {
	Paragraph int    `json:"paragraph"`
	Comment   string `json:"comment"`
}

// EvaluationResult is the boundary contract with the external evaluator.
// Any of its collections may be missing or null in the raw payload; the
// worker normalizes those to empty before the report pipeline runs.
type EvaluationResult struct {
	Scores            map[Category]float64 `json:"scores"`
	Overall           float64              `json:"overall"`
	Annotations       []AnnotationRecord   `json:"annotations"`
	Feedback          []FeedbackItem       `json:"feedback"`
	ParagraphFeedback []ParagraphFeedback  `json:"paragraph_feedback"`
}

// Statistics are derived counts over the canonical essay text.
type Statistics struct {
	WordCount       int     `json:"word_count"`
	SentenceCount   int     `json:"sentence_count"`
	ParagraphCount  int     `json:"paragraph_count"`
	AvgWordsPerSent float64 `json:"avg_words_per_sentence"`
	ComplexityScore float64 `json:"complexity_score"`
}

// LegendEntry maps a category to its display name and color. The legend
// lists every rubric category whether or not this essay used it.
type LegendEntry struct {
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Prefix   string   `json:"prefix"`
}

// CategoryScore is one scored rubric category.
type CategoryScore struct {
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Score    float64  `json:"score"`
	Weight   float64  `json:"weight"`
}

// AnnotatedReport is the root output consumed by renderers (HTML, PDF, or
// a UI component tree). It is a plain data structure owned exclusively by
// one report-generation invocation; nothing in it is shared or mutated
// after assembly.
type AnnotatedReport struct {
	EssayID            string               `json:"essay_id"`
	Statistics         Statistics           `json:"statistics"`
	Segments           []TextSegment        `json:"segments"`
	Annotations        []ResolvedAnnotation `json:"annotations"`
	DroppedAnnotations int                  `json:"dropped_annotations"`
	Blocks             []FeedbackBlock      `json:"feedback_blocks"`
	ParagraphFeedback  []ParagraphFeedback  `json:"paragraph_feedback"`
	Legend             []LegendEntry        `json:"legend"`
	Scores             []CategoryScore      `json:"scores"`
	OverallScore       float64              `json:"overall_score"`
	GeneratedAt        time.Time            `json:"generated_at"`
}
