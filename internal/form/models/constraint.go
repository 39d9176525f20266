package models

import (
	"fmt"
	"net/mail"
	"time"

	dErrors "formflow/pkg/domain-errors"
)

// Constraint validates one field's value. Each question kind carries its own
// constraint type; the closed set below replaces the runtime schema-builder
// the engine would otherwise need.
//
// Implementations return CodeValidation errors with messages suitable for
// inline display next to the field.
type Constraint interface {
	Validate(v AnswerValue) error
}

func requiredErr() error {
	return dErrors.New(dErrors.CodeValidation, "this field is required")
}

// TextConstraint validates text, email, and longtext answers.
type TextConstraint struct {
	Required bool
	MinLen   int
	// MaxLen of 0 means unbounded.
	MaxLen int
	// Email switches on RFC 5322 address checking.
	Email bool
}

func (c TextConstraint) Validate(v AnswerValue) error {
	if !v.IsAnswered() {
		if c.Required {
			return requiredErr()
		}
		return nil
	}
	if v.Kind != ValueString {
		return dErrors.New(dErrors.CodeValidation, "expected a text value")
	}
	if c.MinLen > 0 && len(v.Str) < c.MinLen {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("must be at least %d characters", c.MinLen))
	}
	if c.MaxLen > 0 && len(v.Str) > c.MaxLen {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("must be at most %d characters", c.MaxLen))
	}
	if c.Email {
		if _, err := mail.ParseAddress(v.Str); err != nil {
			return dErrors.New(dErrors.CodeValidation, "must be a valid email address")
		}
	}
	return nil
}

// NumberConstraint validates numeric answers with optional bounds.
type NumberConstraint struct {
	Required bool
	Min      *float64
	Max      *float64
}

func (c NumberConstraint) Validate(v AnswerValue) error {
	if !v.IsAnswered() {
		if c.Required {
			return requiredErr()
		}
		return nil
	}
	if v.Kind != ValueNumber {
		return dErrors.New(dErrors.CodeValidation, "expected a number value")
	}
	if c.Min != nil && v.Num < *c.Min {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("must be at least %v", *c.Min))
	}
	if c.Max != nil && v.Num > *c.Max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("must be at most %v", *c.Max))
	}
	return nil
}

// EnumConstraint validates select, radio, and segment answers against the
// question's option values.
type EnumConstraint struct {
	Required bool
	Allowed  []string
}

func (c EnumConstraint) Validate(v AnswerValue) error {
	if !v.IsAnswered() {
		if c.Required {
			return requiredErr()
		}
		return nil
	}
	if v.Kind != ValueString {
		return dErrors.New(dErrors.CodeValidation, "expected an option value")
	}
	for _, a := range c.Allowed {
		if v.Str == a {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeValidation, "value is not one of the allowed options")
}

// BoolConstraint validates toggle answers. Required means the toggle must be
// set (either way); false counts as answered.
type BoolConstraint struct {
	Required bool
}

func (c BoolConstraint) Validate(v AnswerValue) error {
	if !v.IsAnswered() {
		if c.Required {
			return requiredErr()
		}
		return nil
	}
	if v.Kind != ValueBool {
		return dErrors.New(dErrors.CodeValidation, "expected a boolean value")
	}
	return nil
}

// DateConstraint validates date answers with optional calendar bounds.
type DateConstraint struct {
	Required  bool
	NotBefore *time.Time
	NotAfter  *time.Time
}

func (c DateConstraint) Validate(v AnswerValue) error {
	if !v.IsAnswered() {
		if c.Required {
			return requiredErr()
		}
		return nil
	}
	if v.Kind != ValueDate {
		return dErrors.New(dErrors.CodeValidation, "expected a date value")
	}
	if c.NotBefore != nil && v.Time.Before(*c.NotBefore) {
		return dErrors.New(dErrors.CodeValidation, "date is before the allowed range")
	}
	if c.NotAfter != nil && v.Time.After(*c.NotAfter) {
		return dErrors.New(dErrors.CodeValidation, "date is after the allowed range")
	}
	return nil
}
