// Package issue defines the compliance findings produced by the final reasoning step.
package issue

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoResult is returned when a structured result was requested but the
// model produced nothing (empty body, null, or no issues array).
var ErrNoResult = errors.New("model returned no structured result")

// Importance ranks an issue. Higher values are more severe.
type Importance int

const (
	Low Importance = iota
	Medium
	High
	Critical
)

var importanceNames = map[Importance]string{
	Low:      "LOW",
	Medium:   "MEDIUM",
	High:     "HIGH",
	Critical: "CRITICAL",
}

// String returns the upper-case wire name.
func (i Importance) String() string {
	if name, ok := importanceNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Importance(%d)", int(i))
}

// ParseImportance accepts any casing of LOW, MEDIUM, HIGH or CRITICAL.
func ParseImportance(s string) (Importance, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return Low, nil
	case "MEDIUM":
		return Medium, nil
	case "HIGH":
		return High, nil
	case "CRITICAL":
		return Critical, nil
	}
	return Low, fmt.Errorf("unknown importance %q", s)
}

// MarshalJSON encodes the importance as its upper-case name.
func (i Importance) MarshalJSON() ([]byte, error) {
	name, ok := importanceNames[i]
	if !ok {
		return nil, fmt.Errorf("invalid importance %d", int(i))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a case-insensitive importance name.
func (i *Importance) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("importance must be a string: %w", err)
	}
	parsed, err := ParseImportance(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Issue is one identified compliance problem.
type Issue struct {
	Passage        string     `json:"passage"`
	Recommendation string     `json:"recommendation"`
	Importance     Importance `json:"importance"`
}

// New builds an Issue.
func New(passage, recommendation string, importance Importance) Issue {
	return Issue{Passage: passage, Recommendation: recommendation, Importance: importance}
}

// Issues is the ordered collection returned by a pipeline run.
type Issues struct {
	Issues []Issue `json:"issues"`
}

// Empty returns a collection with a non-nil, zero-length slice so it
// always encodes as {"issues":[]}.
func Empty() Issues {
	return Issues{Issues: []Issue{}}
}

// Of builds a collection from the given issues.
func Of(items ...Issue) Issues {
	out := make([]Issue, len(items))
	copy(out, items)
	return Issues{Issues: out}
}

// Len returns the number of issues.
func (c Issues) Len() int { return len(c.Issues) }

// IsEmpty reports whether the collection holds no issues.
func (c Issues) IsEmpty() bool { return len(c.Issues) == 0 }

// Normalize replaces a nil slice with an empty one.
func (c Issues) Normalize() Issues {
	if c.Issues == nil {
		return Empty()
	}
	return c
}

// SortByImportance returns a copy ordered Critical first. Ties keep their order.
func (c Issues) SortByImportance() Issues {
	out := make([]Issue, len(c.Issues))
	copy(out, c.Issues)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Importance > out[b].Importance
	})
	return Issues{Issues: out}
}

// String renders the collection deterministically. It is the textual
// output of the compliance step.
func (c Issues) String() string {
	if len(c.Issues) == 0 {
		return "No compliance issues found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d compliance issue(s):\n", len(c.Issues))
	for n, it := range c.Issues {
		fmt.Fprintf(&sb, "%d. [%s] %q\n   Recommendation: %s\n", n+1, it.Importance, it.Passage, it.Recommendation)
	}
	return strings.TrimRight(sb.String(), "\n")
}
