package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	reBareKey       = regexp.MustCompile(`([{,]\s*)(\w+)(\s*:)`)
)

// CleanJSON recovers a JSON object from typical model output: it strips
// markdown fences, extracts the first balanced {...} from surrounding prose,
// and repairs trailing commas and unquoted keys. The returned string is not
// guaranteed to parse; callers must still unmarshal.
func CleanJSON(response string) string {
	s := strings.TrimSpace(response)
	s = stripFences(s)
	s = extractObject(s)
	if json.Valid([]byte(s)) {
		return s
	}
	s = reTrailingComma.ReplaceAllString(s, "$1")
	s = reBareKey.ReplaceAllString(s, `$1"$2"$3`)
	return s
}

func stripFences(s string) string {
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractObject returns the first brace-balanced object, skipping braces
// inside string literals.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return s
	}
	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case esc:
			esc = false
		case inStr && c == '\\':
			esc = true
		case c == '"':
			inStr = !inStr
		case inStr:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}
