package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tutorstack/essay-tutor/internal/domain"
)

// Locate pins annotation records to byte ranges of the essay text and
// assigns document-order markers. Records whose excerpt is empty or does
// not occur in the text are dropped, not errors; the dropped count is
// returned so callers can surface silent evaluator hallucinations.
//
// Matching keeps a search cursor per category so that repeated excerpts
// bind to successive occurrences left to right instead of collapsing onto
// the first one. A record whose excerpt only occurs before the cursor
// falls back to a search from the start of the text, which tolerates
// evaluator output arriving out of document order. Overlapping and
// identical ranges are all retained; a position may carry several
// annotations.
func Locate(text string, records []domain.AnnotationRecord, rubric Rubric) ([]domain.ResolvedAnnotation, int) {
	resolved := make([]domain.ResolvedAnnotation, 0, len(records))
	cursors := make(map[domain.Category]int)
	dropped := 0

	for _, rec := range records {
		if rec.Excerpt == "" {
			// an empty excerpt would "match" at index 0 of any text
			dropped++
			continue
		}
		start := -1
		if cur := cursors[rec.Category]; cur <= len(text) {
			if idx := strings.Index(text[cur:], rec.Excerpt); idx >= 0 {
				start = cur + idx
			}
		}
		if start < 0 {
			start = strings.Index(text, rec.Excerpt)
		}
		if start < 0 {
			dropped++
			continue
		}
		end := start + len(rec.Excerpt)
		cursors[rec.Category] = start + 1
		resolved = append(resolved, domain.ResolvedAnnotation{
			AnnotationRecord: rec,
			Start:            start,
			End:              end,
		})
	}

	// Document order; ties keep evaluator input order.
	sort.SliceStable(resolved, func(i, j int) bool { return resolved[i].Start < resolved[j].Start })

	assignMarkers(resolved, rubric)
	return resolved, dropped
}

// assignMarkers numbers annotations per category by their rank in document
// order, not evaluator output order. Prefixes come from the rubric's
// category metadata so inline markers always agree with the legend.
// Counters are locals scoped to this call; nothing leaks across report
// generations.
func assignMarkers(resolved []domain.ResolvedAnnotation, rubric Rubric) {
	counts := make(map[domain.Category]int)
	for i := range resolved {
		cat := resolved[i].Category
		prefix := rubric.MetaFor(cat).Prefix
		if prefix == "" {
			prefix = markerPrefix(cat)
		}
		counts[cat]++
		resolved[i].Marker = fmt.Sprintf("%s%d", prefix, counts[cat])
	}
}

// markerPrefix is the fallback for categories whose rubric metadata carries
// no prefix.
func markerPrefix(c domain.Category) string {
	switch c {
	case domain.CategoryGrammar:
		return "G"
	case domain.CategoryVocabulary:
		return "W"
	case domain.CategoryStructure:
		return "S"
	case domain.CategoryDevelopment:
		return "D"
	case domain.CategoryClarity:
		return "C"
	case domain.CategoryStrengths:
		return "✓"
	default:
		if c == "" {
			return "N"
		}
		return strings.ToUpper(string(c[:1]))
	}
}
