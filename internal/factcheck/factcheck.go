// Package factcheck applies best-effort corrections to generated answers by
// scanning the retrieved evidence for patterns the generator commonly gets
// wrong. It is not a verifier: rules only append notes, never rewrite, and a
// failing rule leaves the answer untouched.
package factcheck

import (
	"github.com/repoqa/repoqa/pkg/types"
)

// Rule inspects a generated answer against the evidence for one category of
// question. Apply returns the note to append and whether the rule fired.
// Rules see the original answer, not the output of earlier rules.
type Rule interface {
	Name() string
	Apply(query, answer string, evidence []types.SourceReference) (string, bool)
}

// Checker runs an ordered rule set over generated answers
type Checker struct {
	rules []Rule
}

// New creates a checker with the default rule set
func New() *Checker {
	return NewWithRules(
		&EmbeddingModelRule{},
		&ConfigFilesRule{},
		&DefaultValuesRule{},
	)
}

// NewWithRules creates a checker with a caller-provided rule set
func NewWithRules(rules ...Rule) *Checker {
	return &Checker{rules: rules}
}

// Check returns the answer with every fired rule's note appended. Any panic
// during rule evaluation is swallowed and the original answer returned;
// fact-checking must never fail a query.
func (c *Checker) Check(query, answer string, evidence []types.SourceReference) (corrected string) {
	corrected = answer
	defer func() {
		if r := recover(); r != nil {
			corrected = answer
		}
	}()

	var notes []string
	for _, rule := range c.rules {
		if note, ok := rule.Apply(query, answer, evidence); ok && note != "" {
			notes = append(notes, note)
		}
	}

	for _, note := range notes {
		corrected += note
	}
	return corrected
}
