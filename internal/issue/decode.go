package issue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedIssue is returned when an item of the issues array is null,
// has no passage or has no importance.
var ErrMalformedIssue = errors.New("malformed issue")

// JSONSchema is handed to schema-capable model clients so the reply
// decodes straight into Issues.
const JSONSchema = `{
  "type": "object",
  "properties": {
    "issues": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "passage": {"type": "string"},
          "recommendation": {"type": "string"},
          "importance": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]}
        },
        "required": ["passage", "recommendation", "importance"],
        "additionalProperties": false
      }
    }
  },
  "required": ["issues"],
  "additionalProperties": false
}`

// Decode parses a model reply into Issues.
//
// An empty body, a literal null, or an object without an "issues" array is
// ErrNoResult. A present but empty array is a valid, empty result.
func Decode(raw string) (Issues, error) {
	body := stripFences(raw)
	if body == "" || body == "null" {
		return Issues{}, ErrNoResult
	}

	var wire struct {
		Issues *[]*wireIssue `json:"issues"`
	}
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return Issues{}, fmt.Errorf("failed to decode issues: %w", err)
	}
	if wire.Issues == nil {
		return Issues{}, ErrNoResult
	}

	out := make([]Issue, 0, len(*wire.Issues))
	for i, w := range *wire.Issues {
		item, err := w.issue()
		if err != nil {
			return Issues{}, fmt.Errorf("%w: issue %d: %v", ErrMalformedIssue, i+1, err)
		}
		out = append(out, item)
	}
	return Issues{Issues: out}, nil
}

// wireIssue keeps absent fields distinguishable from zero values.
type wireIssue struct {
	Passage        string      `json:"passage"`
	Recommendation string      `json:"recommendation"`
	Importance     *Importance `json:"importance"`
}

func (w *wireIssue) issue() (Issue, error) {
	switch {
	case w == nil:
		return Issue{}, fmt.Errorf("null item")
	case strings.TrimSpace(w.Passage) == "":
		return Issue{}, fmt.Errorf("empty passage")
	case w.Importance == nil:
		return Issue{}, fmt.Errorf("missing importance")
	}
	return New(w.Passage, w.Recommendation, *w.Importance), nil
}

// stripFences removes a surrounding markdown code fence, which some models
// add even when asked for raw JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
