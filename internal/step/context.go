package step

import (
	"errors"
	"fmt"

	"clausecheck/internal/issue"
)

// ErrKindMismatch is returned when a value is written to a key of another kind.
var ErrKindMismatch = errors.New("value kind does not match context key")

// Kind is the declared value type of a context key.
type Kind int

const (
	KindText Kind = iota
	KindIssues
)

// Key names one slot of the per-run context. The set is closed.
type Key int

const (
	KeyOriginalInput Key = iota
	KeyContractAnalysis
	KeyLegalContext
	KeyOriginalContract
	KeyComplianceIssues

	numKeys
)

var keyNames = [numKeys]string{
	KeyOriginalInput:    "original_input",
	KeyContractAnalysis: "contract_analysis",
	KeyLegalContext:     "legal_context",
	KeyOriginalContract: "original_contract",
	KeyComplianceIssues: "compliance_issues",
}

// String returns the stable key name.
func (k Key) String() string {
	if k < 0 || k >= numKeys {
		return fmt.Sprintf("Key(%d)", int(k))
	}
	return keyNames[k]
}

// Kind returns the declared value type of the key.
func (k Key) Kind() Kind {
	if k == KeyComplianceIssues {
		return KindIssues
	}
	return KindText
}

// Context is the typed working state shared by the steps of one run.
// Each key has its own slot; a nil pointer means "never written".
type Context struct {
	originalInput    *string
	contractAnalysis *string
	legalContext     *string
	originalContract *string
	complianceIssues *issue.Issues
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{}
}

func (c *Context) textSlot(k Key) (**string, error) {
	switch k {
	case KeyOriginalInput:
		return &c.originalInput, nil
	case KeyContractAnalysis:
		return &c.contractAnalysis, nil
	case KeyLegalContext:
		return &c.legalContext, nil
	case KeyOriginalContract:
		return &c.originalContract, nil
	}
	return nil, fmt.Errorf("%w: %s holds issues, not text", ErrKindMismatch, k)
}

// SetText writes a text value. Later writes replace earlier ones.
func (c *Context) SetText(k Key, v string) error {
	slot, err := c.textSlot(k)
	if err != nil {
		return err
	}
	*slot = &v
	return nil
}

// Text reads a text value and reports whether it was written.
func (c *Context) Text(k Key) (string, bool) {
	slot, err := c.textSlot(k)
	if err != nil || *slot == nil {
		return "", false
	}
	return **slot, true
}

// MustText reads a text value that an earlier step must have written.
// A missing value is an ordering bug and panics with the key name.
func (c *Context) MustText(k Key) string {
	v, ok := c.Text(k)
	if !ok {
		panic(fmt.Sprintf("context key %q read before any step wrote it", k.String()))
	}
	return v
}

// SetIssues writes the compliance result.
func (c *Context) SetIssues(v issue.Issues) {
	v = v.Normalize()
	c.complianceIssues = &v
}

// Issues reads the compliance result and reports whether it was written.
func (c *Context) Issues() (issue.Issues, bool) {
	if c.complianceIssues == nil {
		return issue.Issues{}, false
	}
	return *c.complianceIssues, true
}

// Has reports whether k was written during this run.
func (c *Context) Has(k Key) bool {
	if k.Kind() == KindIssues {
		return c.complianceIssues != nil
	}
	_, ok := c.Text(k)
	return ok
}

// Keys lists the written keys in declaration order.
func (c *Context) Keys() []Key {
	var keys []Key
	for k := Key(0); k < numKeys; k++ {
		if c.Has(k) {
			keys = append(keys, k)
		}
	}
	return keys
}
