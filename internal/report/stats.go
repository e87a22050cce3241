package report

import (
	"math"
	"regexp"
	"strings"

	"github.com/tutorstack/essay-tutor/internal/domain"
)

var (
	reSentenceEnd = regexp.MustCompile(`[.!?]+(\s|$)`)
	reParagraph   = regexp.MustCompile(`\n\s*\n`)
	reWordStrip   = regexp.MustCompile(`[^\pL\pN'-]`)
)

// longWordLen is the minimum length for a word to count toward the
// complexity score.
const longWordLen = 7

// ComputeStatistics derives word, sentence, and paragraph counts plus a
// long-word complexity score from the canonical essay text. It is a pure
// function of the text and is recomputed on demand, never cached.
func ComputeStatistics(text string) domain.Statistics {
	var s domain.Statistics
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return s
	}

	words := strings.Fields(trimmed)
	s.WordCount = len(words)

	s.SentenceCount = len(reSentenceEnd.FindAllString(trimmed, -1))
	if s.SentenceCount == 0 {
		// text with words but no terminal punctuation still reads as one sentence
		s.SentenceCount = 1
	}

	s.ParagraphCount = len(reParagraph.Split(trimmed, -1))

	if s.SentenceCount > 0 {
		s.AvgWordsPerSent = round1(float64(s.WordCount) / float64(s.SentenceCount))
	}

	long := 0
	for _, w := range words {
		if len([]rune(reWordStrip.ReplaceAllString(w, ""))) >= longWordLen {
			long++
		}
	}
	s.ComplexityScore = round1(100 * float64(long) / float64(s.WordCount))
	return s
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
