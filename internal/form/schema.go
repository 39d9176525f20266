package form

import (
	"fmt"

	"formflow/internal/form/models"
	dErrors "formflow/pkg/domain-errors"
)

// Schema is the aggregate validation contract for one visible question set:
// one constraint per field, rejecting anything it does not know about.
type Schema map[string]models.Constraint

// BuildSchema folds the active question list into a per-field validator map.
// Constraints come verbatim from each question.
func BuildSchema(questions []models.Question) Schema {
	s := make(Schema, len(questions))
	for _, q := range questions {
		s[q.Field] = q.Constraint
	}
	return s
}

// ValidateField checks a single field's value on a next transition.
//
// Errors: CodeValidation for constraint failures or fields outside the
// schema.
func (s Schema) ValidateField(field string, v models.AnswerValue) error {
	c, ok := s[field]
	if !ok {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown field %q", field))
	}
	return c.Validate(v)
}

// ValidateAll checks the whole record on final submit, across every
// then-visible question. Returns one error per failing field so the UI can
// surface them inline together.
func (s Schema) ValidateAll(answers models.AnswerSet) map[string]error {
	errs := make(map[string]error)
	for field, c := range s {
		if err := c.Validate(answers.Get(field)); err != nil {
			errs[field] = err
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
