// Package stub provides a deterministic AI client for development and tests.
package stub

import (
	"encoding/json"
	"time"

	"github.com/tutorstack/essay-tutor/internal/domain"
)

// Client returns a fixed, schema-valid evaluation without network calls.
type Client struct{}

// New constructs a stub client.
func New() *Client { return &Client{} }

// ChatJSON returns a compact JSON string matching the evaluation schema.
// The excerpts are generic enough that most of them will not locate in an
// arbitrary essay, which exercises the dropped-annotation path too.
func (c *Client) ChatJSON(_ domain.Context, _ string, _ string, _ int) (string, error) {
	// Simulate a little processing latency.
	time.Sleep(50 * time.Millisecond)
	payload := map[string]any{
		"scores": map[string]float64{
			"grammar":     3.5,
			"vocabulary":  4.0,
			"structure":   3.0,
			"development": 3.5,
			"clarity":     4.0,
		},
		"annotations": []map[string]any{
			{
				"category":              "grammar",
				"original_excerpt":      "the",
				"explanation":           "Check article usage in this sentence.",
				"suggested_replacement": "a",
				"severity":              "minor",
			},
			{
				"category":         "strengths",
				"original_excerpt": "I believe",
				"explanation":      "Clear statement of position.",
				"severity":         "positive",
			},
		},
		"feedback": []map[string]any{
			{
				"category": "structure",
				"type":     "improvement",
				"title":    "Add transitions",
				"body":     "Paragraphs would flow better with transition sentences.",
			},
		},
		"paragraph_feedback": []map[string]any{
			{"paragraph": 1, "comment": "Strong opening paragraph."},
		},
	}
	b, _ := json.Marshal(payload)
	return string(b), nil
}
