package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	dErrors "formflow/pkg/domain-errors"
)

// DateLayout is the wire and storage encoding for date answers.
const DateLayout = "2006-01-02"

// ValueKind tags the runtime type of an answer value.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	ValueDate
)

// AnswerValue is the typed value of one answered field. The zero value is
// null/unset.
type AnswerValue struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
}

func NullValue() AnswerValue            { return AnswerValue{} }
func StringValue(s string) AnswerValue  { return AnswerValue{Kind: ValueString, Str: s} }
func NumberValue(n float64) AnswerValue { return AnswerValue{Kind: ValueNumber, Num: n} }
func BoolValue(b bool) AnswerValue      { return AnswerValue{Kind: ValueBool, Bool: b} }
func DateValue(t time.Time) AnswerValue { return AnswerValue{Kind: ValueDate, Time: t} }

// IsNull reports whether the value is unset.
func (v AnswerValue) IsNull() bool { return v.Kind == ValueNull }

// IsAnswered implements the resume rule: null and empty string do not count
// as answers; false and 0 do.
func (v AnswerValue) IsAnswered() bool {
	if v.Kind == ValueNull {
		return false
	}
	if v.Kind == ValueString && v.Str == "" {
		return false
	}
	return true
}

// Canonical returns the storage representation: string, float64, bool, or a
// DateLayout string. Null returns nil.
func (v AnswerValue) Canonical() any {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueNumber:
		return v.Num
	case ValueBool:
		return v.Bool
	case ValueDate:
		return v.Time.Format(DateLayout)
	default:
		return nil
	}
}

// CanonicalString renders the value for predicate comparison. Numbers drop
// trailing zeros so 5 and 5.0 compare equal.
func (v AnswerValue) CanonicalString() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueDate:
		return v.Time.Format(DateLayout)
	default:
		return ""
	}
}

// Equal compares two values by kind and canonical content.
func (v AnswerValue) Equal(o AnswerValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueDate:
		return v.Time.Format(DateLayout) == o.Time.Format(DateLayout)
	default:
		return v.Canonical() == o.Canonical()
	}
}

// ParseValue decodes a raw JSON answer into the typed value the question kind
// expects. JSON null always parses to the null value so "clear this answer"
// round-trips.
//
// Errors: CodeValidation with a field-level message; the caller attributes it
// to the question being answered.
func ParseValue(kind FieldKind, raw json.RawMessage) (AnswerValue, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return NullValue(), nil
	}
	switch kind {
	case KindText, KindEmail, KindLongText, KindSelect, KindRadio, KindSegment:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return AnswerValue{}, dErrors.New(dErrors.CodeValidation, "expected a string value")
		}
		return StringValue(s), nil
	case KindNumber:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			// Tolerate numeric strings from form posts.
			var s string
			if err2 := json.Unmarshal(raw, &s); err2 == nil {
				if parsed, err3 := strconv.ParseFloat(strings.TrimSpace(s), 64); err3 == nil {
					return NumberValue(parsed), nil
				}
			}
			return AnswerValue{}, dErrors.New(dErrors.CodeValidation, "expected a number value")
		}
		return NumberValue(n), nil
	case KindToggle:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return AnswerValue{}, dErrors.New(dErrors.CodeValidation, "expected a boolean value")
		}
		return BoolValue(b), nil
	case KindDate:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return AnswerValue{}, dErrors.New(dErrors.CodeValidation, "expected a date string")
		}
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return AnswerValue{}, dErrors.New(dErrors.CodeValidation, "expected date in YYYY-MM-DD format")
		}
		return DateValue(t), nil
	default:
		return AnswerValue{}, dErrors.New(dErrors.CodeConfiguration, "unknown field kind "+string(kind))
	}
}

// FromStored maps a record-store field back into a typed value when
// reconstructing an AnswerSet for resumption. Inverse of Canonical for every
// supported kind.
func FromStored(kind FieldKind, stored any) (AnswerValue, error) {
	if stored == nil {
		return NullValue(), nil
	}
	switch kind {
	case KindText, KindEmail, KindLongText, KindSelect, KindRadio, KindSegment:
		s, ok := stored.(string)
		if !ok {
			return AnswerValue{}, dErrors.New(dErrors.CodeConfiguration, "stored value is not a string")
		}
		return StringValue(s), nil
	case KindNumber:
		switch n := stored.(type) {
		case float64:
			return NumberValue(n), nil
		case int:
			return NumberValue(float64(n)), nil
		case int64:
			return NumberValue(float64(n)), nil
		case string:
			parsed, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return AnswerValue{}, dErrors.New(dErrors.CodeConfiguration, "stored value is not numeric")
			}
			return NumberValue(parsed), nil
		default:
			return AnswerValue{}, dErrors.New(dErrors.CodeConfiguration, "stored value is not numeric")
		}
	case KindToggle:
		b, ok := stored.(bool)
		if !ok {
			return AnswerValue{}, dErrors.New(dErrors.CodeConfiguration, "stored value is not a boolean")
		}
		return BoolValue(b), nil
	case KindDate:
		s, ok := stored.(string)
		if !ok {
			return AnswerValue{}, dErrors.New(dErrors.CodeConfiguration, "stored value is not a date string")
		}
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return AnswerValue{}, dErrors.New(dErrors.CodeConfiguration, "stored date is malformed")
		}
		return DateValue(t), nil
	default:
		return AnswerValue{}, dErrors.New(dErrors.CodeConfiguration, "unknown field kind "+string(kind))
	}
}
