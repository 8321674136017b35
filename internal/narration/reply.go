package narration

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// cleanYAML strips the markdown fence models like to wrap YAML in.
func cleanYAML(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```yaml")
	text = strings.TrimPrefix(text, "```yml")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// decodeYAML unmarshals a fenced or bare YAML reply into out.
func decodeYAML(text string, out any) error {
	clean := cleanYAML(text)
	if err := yaml.Unmarshal([]byte(clean), out); err != nil {
		return fmt.Errorf("parse reply YAML: %w", err)
	}
	return nil
}

type turnReply struct {
	Narrative   string   `yaml:"narrative"`
	Suggestions []string `yaml:"suggestions"`
}

// parseTurnReply accepts the requested YAML shape and, failing that,
// plain prose with a trailing suggestion list.
func parseTurnReply(text string) Response {
	var r turnReply
	if err := decodeYAML(text, &r); err == nil && strings.TrimSpace(r.Narrative) != "" {
		narrative, suggestions := SplitSuggestions(r.Narrative, r.Suggestions)
		return Response{Narrative: narrative, Suggestions: suggestions}
	}
	narrative, suggestions := SplitSuggestions(cleanYAML(text), nil)
	return Response{Narrative: narrative, Suggestions: suggestions}
}

var suggestionHeader = regexp.MustCompile(`(?im)^\s*(?:\*\*)?(?:suggested actions|suggestions|what (?:do|will) you do(?: next)?)(?:\*\*)?\s*[:?]?(?:\*\*)?\s*$`)

// SplitSuggestions removes a suggestion list embedded at the end of
// narrative and appends its items to suggestions.
func SplitSuggestions(narrative string, suggestions []string) (string, []string) {
	loc := suggestionHeader.FindStringIndex(narrative)
	if loc == nil {
		return strings.TrimSpace(narrative), suggestions
	}
	tail := narrative[loc[1]:]
	out := append([]string(nil), suggestions...)
	for _, line := range strings.Split(tail, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•0123456789.) "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.TrimSpace(narrative[:loc[0]]), out
}
