package models

// FieldKind enumerates the closed set of supported question input kinds.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindEmail    FieldKind = "email"
	KindNumber   FieldKind = "number"
	KindLongText FieldKind = "longtext"
	KindSelect   FieldKind = "select"
	KindRadio    FieldKind = "radio"
	KindDate     FieldKind = "date"
	KindToggle   FieldKind = "toggle"
	KindSegment  FieldKind = "segment"
)

var validKinds = map[FieldKind]bool{
	KindText: true, KindEmail: true, KindNumber: true, KindLongText: true,
	KindSelect: true, KindRadio: true, KindDate: true, KindToggle: true,
	KindSegment: true,
}

// IsValid checks membership in the closed kind set.
func (k FieldKind) IsValid() bool { return validKinds[k] }

// IsEnum reports whether the kind selects from a fixed option list.
func (k FieldKind) IsEnum() bool {
	return k == KindSelect || k == KindRadio || k == KindSegment
}

// Option is one value/label pair of a select, radio, or segment question.
// Order is significant: it is the display order.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question is the immutable definition of one form field.
//
// Invariants:
//   - Field is unique within one definition
//   - enum kinds carry a non-empty ordered Options list
//   - Visibility references only fields declared earlier in the definition
type Question struct {
	ID         string     `json:"id"`
	Field      string     `json:"field"`
	Kind       FieldKind  `json:"kind"`
	Label      string     `json:"label"`
	Constraint Constraint `json:"-"`
	Options    []Option   `json:"options,omitempty"`
	Visibility *Predicate `json:"visibility,omitempty"`
	HelperText string     `json:"helper_text,omitempty"`
}

// OptionValues returns the allowed values of an enum question in order.
func (q Question) OptionValues() []string {
	out := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		out = append(out, o.Value)
	}
	return out
}
