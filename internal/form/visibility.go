// Package form holds the pure engine rules: visibility resolution, schema
// building, resume location, and audit snapshots. Everything here is a pure
// function of (definition, answers) - no I/O, no hidden memoized state - so
// correctness never depends on who recomputes what, or when.
package form

import (
	"log/slog"

	"formflow/internal/form/models"
)

// Visible filters the definition's questions down to the currently active
// subsequence, preserving declaration order. Questions without a predicate
// are always included. A predicate evaluation error is fail-open: the
// question stays visible and the error is reported through logger, never
// fatally - a visibility bug must not strand a respondent mid-form.
func Visible(def *models.FormDefinition, answers models.AnswerSet, logger *slog.Logger) []models.Question {
	out := make([]models.Question, 0, len(def.Questions))
	for _, q := range def.Questions {
		visible, err := q.Visibility.Evaluate(answers)
		if err != nil {
			if logger != nil {
				logger.Error("visibility predicate failed, treating question as visible",
					"form_type", def.Type.String(),
					"question_id", q.ID,
					"error", err.Error(),
				)
			}
			visible = true
		}
		if visible {
			out = append(out, q)
		}
	}
	return out
}
