package report

import (
	"sort"

	"github.com/tutorstack/essay-tutor/internal/domain"
)

// ComposeFeedback groups prose feedback items into one display block per
// (category, type) pair, attaching rubric display metadata and the inline
// markers of the same category. Categories outside the rubric vocabulary
// get neutral fallback metadata instead of an error; empty groups are
// omitted entirely.
func ComposeFeedback(items []domain.FeedbackItem, rubric Rubric, resolved []domain.ResolvedAnnotation) []domain.FeedbackBlock {
	type key struct {
		cat domain.Category
		typ domain.FeedbackType
	}
	groups := make(map[key][]domain.FeedbackItem)
	order := make([]key, 0, len(items))
	for _, it := range items {
		k := key{it.Category, it.Type}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], it)
	}

	markersByCat := make(map[domain.Category][]string)
	for _, ann := range resolved {
		markersByCat[ann.Category] = append(markersByCat[ann.Category], ann.Marker)
	}

	blocks := make([]domain.FeedbackBlock, 0, len(order))
	for _, k := range order {
		meta := rubric.MetaFor(k.cat)
		blocks = append(blocks, domain.FeedbackBlock{
			Category:     k.cat,
			Type:         k.typ,
			CategoryName: meta.Name,
			Color:        meta.Color,
			Priority:     meta.Priority,
			Items:        groups[k],
			Markers:      markersByCat[k.cat],
		})
	}

	// Priority order for display; stable so equal priorities keep the
	// evaluator's ordering.
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Priority < blocks[j].Priority })
	return blocks
}
