package analyze

import (
	"encoding/json"
	"regexp"
)

// jsonObjectPattern matches the widest brace-delimited span in the model
// output; the report usually arrives wrapped in markdown fences or prose.
var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// ExtractReport pulls the structured report out of the model's free text and
// attaches citations. Output that does not contain a parseable JSON object
// degrades to a summary-only report rather than failing the run.
func ExtractReport(text string, citations []string) json.RawMessage {
	if citations == nil {
		citations = []string{}
	}
	if match := jsonObjectPattern.FindString(text); match != "" {
		var report map[string]any
		if err := json.Unmarshal([]byte(match), &report); err == nil {
			report["citations"] = citations
			if out, err := json.Marshal(report); err == nil {
				return out
			}
		}
	}
	out, _ := json.Marshal(map[string]any{
		"year_summary": text,
		"citations":    citations,
	})
	return out
}
