package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tutorstack/essay-tutor/internal/report"
)

func TestComputeStatistics_Empty(t *testing.T) {
	s := report.ComputeStatistics("")
	assert.Zero(t, s.WordCount)
	assert.Zero(t, s.SentenceCount)
	assert.Zero(t, s.ParagraphCount)
	assert.Zero(t, s.ComplexityScore)
}

func TestComputeStatistics_Counts(t *testing.T) {
	text := "The cat sat. The cat ran fast.\n\nIt was a remarkable, memorable day!"
	s := report.ComputeStatistics(text)
	assert.Equal(t, 13, s.WordCount)
	assert.Equal(t, 3, s.SentenceCount)
	assert.Equal(t, 2, s.ParagraphCount)
	assert.InDelta(t, 4.3, s.AvgWordsPerSent, 0.001)
}

func TestComputeStatistics_NoTerminalPunctuationIsOneSentence(t *testing.T) {
	s := report.ComputeStatistics("a fragment without an ending")
	assert.Equal(t, 1, s.SentenceCount)
	assert.Equal(t, 5, s.WordCount)
}

func TestComputeStatistics_ComplexityCountsLongWords(t *testing.T) {
	// 2 of 4 words have 7+ letters after stripping punctuation
	s := report.ComputeStatistics("the magnificent, wonderful cat")
	assert.Equal(t, 50.0, s.ComplexityScore)
}
