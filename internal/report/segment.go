package report

import (
	"github.com/tutorstack/essay-tutor/internal/domain"
)

// BuildSegments slices the essay into an ordered, contiguous, exhaustive
// run of segments: every byte of the text appears in exactly one segment
// and the segments concatenate back to the original text, however messy
// the annotation ranges are.
//
// Annotations whose ranges coincide exactly share one segment and merge
// their markers. An annotation overlapping the tail of a previous one is
// clipped to the not-yet-consumed suffix of the text; an annotation fully
// nested inside an already-emitted range produces no segment of its own
// (it remains in the resolved list for the margin notes). An empty
// document yields a single empty segment.
func BuildSegments(text string, resolved []domain.ResolvedAnnotation) []domain.TextSegment {
	if text == "" {
		return []domain.TextSegment{{Text: "", Start: 0, End: 0}}
	}

	// Group markers by exact range first. Identical ranges are not always
	// adjacent in the sorted slice: ties on Start keep evaluator order, so
	// a same-start shorter range can sit between two identical ones.
	type span struct{ start, end int }
	markersByRange := make(map[span][]string, len(resolved))
	ranges := make([]span, 0, len(resolved))
	for _, ann := range resolved {
		r := span{ann.Start, ann.End}
		if _, ok := markersByRange[r]; !ok {
			ranges = append(ranges, r)
		}
		markersByRange[r] = append(markersByRange[r], ann.Marker)
	}

	segs := make([]domain.TextSegment, 0, 2*len(ranges)+1)
	cursor := 0

	for _, r := range ranges {
		markers := markersByRange[r]
		start, end := r.start, r.end
		if end <= cursor {
			// fully nested in an already-emitted range
			continue
		}
		if start < cursor {
			start = cursor
		}
		if start > cursor {
			segs = append(segs, domain.TextSegment{Text: text[cursor:start], Start: cursor, End: start})
		}
		segs = append(segs, domain.TextSegment{Text: text[start:end], Start: start, End: end, Markers: markers})
		cursor = end
	}

	if cursor < len(text) {
		segs = append(segs, domain.TextSegment{Text: text[cursor:], Start: cursor, End: len(text)})
	}
	return segs
}
