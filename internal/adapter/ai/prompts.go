// Package ai provides evaluator prompt construction and response handling.
//
// The evaluator is an LLM reached through an OpenAI-compatible chat API. It
// is asked for a single JSON document; everything in this package exists to
// make that request precise and to survive the ways real model output
// deviates from it.
package ai

import (
	"fmt"
	"strings"

	"github.com/tutorstack/essay-tutor/internal/domain"
	"github.com/tutorstack/essay-tutor/internal/report"
)

// SystemPrompt instructs the evaluator to return strict JSON matching the
// evaluation schema for the given rubric.
func SystemPrompt(r report.Rubric) string {
	var b strings.Builder
	b.WriteString("You are an experienced writing instructor evaluating a student essay.\n")
	b.WriteString("Respond with a single JSON object and nothing else. No markdown, no prose outside JSON.\n\n")
	b.WriteString("Schema:\n")
	b.WriteString("{\n")
	b.WriteString(`  "scores": {`)
	ids := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		if c.Weight > 0 {
			ids = append(ids, fmt.Sprintf("%q: <0-%g>", c.ID, r.Scale))
		}
	}
	b.WriteString(strings.Join(ids, ", "))
	b.WriteString("},\n")
	b.WriteString("  \"annotations\": [{\"category\": <category id>, \"original_excerpt\": <verbatim text copied from the essay>, \"explanation\": <why it matters>, \"suggested_replacement\": <optional fix>, \"severity\": \"minor\"|\"moderate\"|\"major\"|\"positive\"}],\n")
	b.WriteString("  \"feedback\": [{\"category\": <category id>, \"type\": \"strength\"|\"improvement\"|\"suggestion\", \"title\": <short title>, \"body\": <one paragraph>}],\n")
	b.WriteString("  \"paragraph_feedback\": [{\"paragraph\": <1-based index>, \"comment\": <comment on that paragraph>}]\n")
	b.WriteString("}\n\n")
	b.WriteString("Category ids: ")
	all := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		all = append(all, string(c.ID))
	}
	b.WriteString(strings.Join(all, ", "))
	b.WriteString(".\n")
	b.WriteString("Rules: original_excerpt must be copied verbatim from the essay, 3 to 15 words, never invented. ")
	b.WriteString("Use the \"strengths\" category with severity \"positive\" to highlight what the student did well. ")
	b.WriteString("Aim for 5 to 15 annotations depending on essay length.")
	return b.String()
}

// UserPrompt renders the essay (and its assignment prompt, when known) for
// evaluation.
func UserPrompt(essay domain.Essay, r report.Rubric) string {
	var b strings.Builder
	if essay.Prompt != "" {
		b.WriteString("Assignment prompt:\n")
		b.WriteString(essay.Prompt)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Score each category on a 0-%g scale.\n\n", r.Scale)
	b.WriteString("Essay:\n")
	b.WriteString(essay.Text)
	return b.String()
}
