package models

import "fmt"

// PredicateOp enumerates the supported visibility operators.
type PredicateOp string

const (
	OpEq  PredicateOp = "eq"
	OpNeq PredicateOp = "neq"
	OpIn  PredicateOp = "in"
)

// Predicate is a serializable visibility rule over one earlier answer. A nil
// Predicate on a Question means "always visible". Keeping predicates as data
// instead of closures lets the resolver, the resume locator, and the audit
// builder all reason about visibility without executing arbitrary code, and
// makes rules testable in isolation.
type Predicate struct {
	Field string      `json:"field"`
	Op    PredicateOp `json:"op"`
	Value string      `json:"value,omitempty"`
	// Values is the membership set for OpIn.
	Values []string `json:"values,omitempty"`
}

// Evaluate applies the predicate to the current answers. An unanswered field
// compares as the empty canonical string, so OpEq against any concrete value
// is false and OpNeq is true.
//
// Errors: only for malformed predicates (unknown operator, empty field);
// callers treat evaluation errors as fail-open visible.
func (p *Predicate) Evaluate(answers AnswerSet) (bool, error) {
	if p == nil {
		return true, nil
	}
	if p.Field == "" {
		return false, fmt.Errorf("predicate has no field")
	}
	got := answers.Get(p.Field).CanonicalString()
	switch p.Op {
	case OpEq:
		return got == p.Value, nil
	case OpNeq:
		return got != p.Value, nil
	case OpIn:
		for _, v := range p.Values {
			if got == v {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown predicate op %q", p.Op)
	}
}

// References returns the field the predicate depends on, "" for nil
// predicates. Used by definition validation to reject forward references.
func (p *Predicate) References() string {
	if p == nil {
		return ""
	}
	return p.Field
}
