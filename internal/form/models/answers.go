package models

// AnswerSet is the in-memory mapping of answered field values for one form
// session. It is mutated exclusively through the session's commit transition
// and is never rolled back on persistence failure - only the step transition
// is blocked.
type AnswerSet map[string]AnswerValue

// NewAnswerSet returns an empty answer set.
func NewAnswerSet() AnswerSet { return AnswerSet{} }

// Get returns the value for field, null when unanswered.
func (a AnswerSet) Get(field string) AnswerValue {
	if a == nil {
		return NullValue()
	}
	return a[field]
}

// Set records a value. Setting null keeps the entry so a cleared answer
// still shows up as explicitly unanswered in the resume scan.
func (a AnswerSet) Set(field string, v AnswerValue) {
	a[field] = v
}

// Answered reports whether field carries an answer per the resume rule.
func (a AnswerSet) Answered(field string) bool {
	return a.Get(field).IsAnswered()
}

// Clone returns an independent copy. Strategies hand copies to async writes
// so later commits cannot mutate a payload already in flight.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
