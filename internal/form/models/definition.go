package models

import (
	"fmt"

	id "formflow/pkg/domain"
	dErrors "formflow/pkg/domain-errors"
)

// StrategyKind selects when answers are written to durable storage.
type StrategyKind string

const (
	// StrategyDraftUpdate creates a draft on the first commit, patches it on
	// every later commit, and marks it submitted on the terminal write.
	StrategyDraftUpdate StrategyKind = "draft_update"
	// StrategyFieldPatch patches a pre-existing record per commit; no create
	// step and no status transition.
	StrategyFieldPatch StrategyKind = "field_patch"
	// StrategyInsertOnce accumulates answers in memory and performs a single
	// insert on the terminal write.
	StrategyInsertOnce StrategyKind = "insert_once"
)

// StorageSpec addresses the definition's rows in the external record store.
type StorageSpec struct {
	Table    string
	IDColumn string
	// StatusField and AuditField are only consulted by the draft-update
	// strategy.
	StatusField string
	AuditField  string
	// TokenHashField, when set, stores the bcrypt hash of the draft's resume
	// token alongside the answers.
	TokenHashField string
}

// Finalizer maps the final answer set into the fields of the terminal write.
// The default (nil) writes each visible field's canonical value. Extensions
// such as the risk profiler replace it to add derived fields, and may demand
// a review step before the write happens.
type Finalizer interface {
	// Finalize returns the complete field map for the terminal write plus a
	// display summary for the review screen (nil when there is nothing to
	// review).
	Finalize(def *FormDefinition, answers AnswerSet, visible []Question) (map[string]any, map[string]any, error)
}

// FormDefinition is the declarative description of one sequential form. The
// engine exposes no imperative hooks into its state machine; everything a
// hosting application can influence is here.
type FormDefinition struct {
	Type        id.FormType
	Title       string
	Description string
	Questions   []Question
	Strategy    StrategyKind
	Storage     StorageSpec
	// RequireReview inserts a review state between the last question and the
	// terminal write; submit then produces a summary and only an explicit
	// confirm persists.
	RequireReview bool
	Finalizer     Finalizer
}

// Validate enforces the definition invariants at registration time so a
// malformed definition can never reach a respondent.
func (d *FormDefinition) Validate() error {
	if d.Type == "" {
		return dErrors.New(dErrors.CodeConfiguration, "definition has no form type")
	}
	if len(d.Questions) == 0 {
		return dErrors.New(dErrors.CodeConfiguration, "definition has no questions")
	}
	if d.Storage.Table == "" {
		return dErrors.New(dErrors.CodeConfiguration, "definition has no storage table")
	}
	// Insert-once never addresses rows by id, so the id column is optional there.
	if d.Storage.IDColumn == "" && d.Strategy != StrategyInsertOnce {
		return dErrors.New(dErrors.CodeConfiguration, "definition has no id column")
	}
	switch d.Strategy {
	case StrategyDraftUpdate:
		if d.Storage.StatusField == "" || d.Storage.AuditField == "" {
			return dErrors.New(dErrors.CodeConfiguration, "draft-update definitions need status and audit fields")
		}
	case StrategyFieldPatch, StrategyInsertOnce:
	default:
		return dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("unknown persistence strategy %q", d.Strategy))
	}

	seen := make(map[string]bool, len(d.Questions))
	for i, q := range d.Questions {
		if q.ID == "" || q.Field == "" {
			return dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("question %d is missing id or field", i))
		}
		if !q.Kind.IsValid() {
			return dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("question %q has unknown kind %q", q.Field, q.Kind))
		}
		if seen[q.Field] {
			return dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("duplicate field %q", q.Field))
		}
		if q.Kind.IsEnum() && len(q.Options) == 0 {
			return dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("question %q needs options", q.Field))
		}
		if q.Constraint == nil {
			return dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("question %q has no constraint", q.Field))
		}
		// Predicates may only look backwards; forward references would make
		// resumability and auditing undefined.
		if ref := q.Visibility.References(); ref != "" && !seen[ref] {
			return dErrors.New(dErrors.CodeConfiguration,
				fmt.Sprintf("question %q visibility references %q which is not declared earlier", q.Field, ref))
		}
		seen[q.Field] = true
	}
	return nil
}

// QuestionByField returns the question owning field, nil when absent.
func (d *FormDefinition) QuestionByField(field string) *Question {
	for i := range d.Questions {
		if d.Questions[i].Field == field {
			return &d.Questions[i]
		}
	}
	return nil
}
