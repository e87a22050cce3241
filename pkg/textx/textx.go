// Package textx provides small text utilities used across the project.
package textx

import (
	"regexp"
	"strings"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

var (
	reSpaces        = regexp.MustCompile(`[ \t]+`)
	reBlankLines    = regexp.MustCompile(`\n{3,}`)
	reSpaceBefore   = regexp.MustCompile(`[ \t]+([.,;:!?])`)
	reMissingSpace  = regexp.MustCompile(`([.,;:!?])([A-Za-z])`)
)

// quoteReplacer maps typographic quotes and dashes to their ASCII forms so
// that evaluator excerpts match regardless of which variant the OCR or the
// student's editor produced.
var quoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", `"`, "”", `"`,
	"–", "-", "—", "-",
	" ", " ",
)

// NormalizeText cleans raw extracted text for evaluation: CRLF to LF,
// typographic quotes to ASCII, runs of spaces collapsed, spacing around
// punctuation repaired, and runs of blank lines reduced to one paragraph
// break. Paragraph boundaries (double newlines) are preserved.
func NormalizeText(s string) string {
	s = SanitizeText(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = quoteReplacer.Replace(s)
	s = reSpaces.ReplaceAllString(s, " ")
	s = reSpaceBefore.ReplaceAllString(s, "$1")
	s = reMissingSpace.ReplaceAllString(s, "$1 $2")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSpace(ln)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
