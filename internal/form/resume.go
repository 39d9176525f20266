package form

import "formflow/internal/form/models"

// ResumeIndex scans the visible questions in order and returns the index a
// returning respondent should land on: the first unanswered question, or the
// last index when everything is answered so a complete form opens on its
// final question ready for review and submit. That last-index behavior is a
// deliberate UX decision, not a fallback.
//
// A question counts as answered when its value is neither null nor the empty
// string; false and 0 are answers. Never returns len(visible).
func ResumeIndex(visible []models.Question, answers models.AnswerSet) int {
	if len(visible) == 0 {
		return 0
	}
	for i, q := range visible {
		if !answers.Answered(q.Field) {
			return i
		}
	}
	return len(visible) - 1
}
