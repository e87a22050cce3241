package report

import (
	"fmt"
	"time"

	"github.com/tutorstack/essay-tutor/internal/domain"
)

// Assemble composes the final report from already-derived parts. The only
// derivation it performs itself is the legend and the weighted overall
// score: sum(score*weight)/sum(weight) over the rubric categories present
// in the score map, rounded to one decimal. Weights need not sum to 1.
//
// A rubric whose scored categories carry zero total weight is a
// programming-contract violation and returns a typed error instead of
// propagating a NaN. An empty score map is valid evaluator degradation
// and yields an overall score of zero.
func Assemble(essayID string, stats domain.Statistics, segments []domain.TextSegment, resolved []domain.ResolvedAnnotation, dropped int, blocks []domain.FeedbackBlock, paragraphs []domain.ParagraphFeedback, scores map[domain.Category]float64, rubric Rubric, now time.Time) (domain.AnnotatedReport, error) {
	catScores := make([]domain.CategoryScore, 0, len(rubric.Categories))
	weightedSum := 0.0
	totalWeight := 0.0
	for _, meta := range rubric.Categories {
		score, ok := scores[meta.ID]
		if !ok {
			continue
		}
		catScores = append(catScores, domain.CategoryScore{
			Category: meta.ID,
			Name:     meta.Name,
			Score:    score,
			Weight:   meta.Weight,
		})
		weightedSum += score * meta.Weight
		totalWeight += meta.Weight
	}

	overall := 0.0
	if len(catScores) > 0 {
		if totalWeight <= 0 {
			return domain.AnnotatedReport{}, fmt.Errorf("%w: scored categories have zero total weight", domain.ErrInvalidArgument)
		}
		overall = round1(weightedSum / totalWeight)
	}

	return domain.AnnotatedReport{
		EssayID:            essayID,
		Statistics:         stats,
		Segments:           segments,
		Annotations:        resolved,
		DroppedAnnotations: dropped,
		Blocks:             blocks,
		ParagraphFeedback:  paragraphs,
		Legend:             rubric.Legend(),
		Scores:             catScores,
		OverallScore:       overall,
		GeneratedAt:        now.UTC(),
	}, nil
}

// Generate runs the full pipeline over one essay and evaluator result:
// statistics, annotation location, segmentation, feedback composition, and
// assembly. It never fails on evaluator data-shape anomalies; missing
// collections degrade to empty ones and unplaceable annotations are
// counted, not raised.
func Generate(essay domain.Essay, result domain.EvaluationResult, rubric Rubric, now time.Time) (domain.AnnotatedReport, error) {
	stats := ComputeStatistics(essay.Text)
	resolved, dropped := Locate(essay.Text, result.Annotations, rubric)
	segments := BuildSegments(essay.Text, resolved)
	blocks := ComposeFeedback(result.Feedback, rubric, resolved)
	return Assemble(essay.ID, stats, segments, resolved, dropped, blocks, result.ParagraphFeedback, result.Scores, rubric, now)
}
