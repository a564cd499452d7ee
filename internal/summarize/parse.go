package summarize

import (
	"encoding/json"
	"regexp"
	"strings"
)

// codeFenceRe matches a markdown code fence, optionally tagged json, and
// captures its contents. Models often wrap JSON replies in fences despite
// instructions.
var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\\s*```")

// ParseSummaryAndKeywords extracts the summary string and keyword list
// from a model reply. Parsing is fail-soft: any reply that does not
// contain well-formed JSON with the expected fields yields an empty
// summary and nil keywords.
func ParseSummaryAndKeywords(raw string) (string, []string) {
	text := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var parsed struct {
		Summary  string   `json:"summary"`
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return "", nil
	}

	return parsed.Summary, parsed.Keywords
}
