package form

import (
	"time"

	"formflow/internal/form/models"
)

// BuildAudit snapshots every currently visible question with its current
// answer. The trail is rebuilt from scratch on each commit so it always
// reflects the form's active shape at save time: questions hidden by a later
// answer change drop out, and their earlier answers leave no entry. The
// lifecycle event pipeline keeps the full history.
func BuildAudit(answers models.AnswerSet, visible []models.Question, at time.Time) models.AuditTrail {
	trail := make(models.AuditTrail, 0, len(visible))
	for _, q := range visible {
		trail = append(trail, models.AuditEntry{
			QuestionID: q.ID,
			Label:      q.Label,
			Answer:     answers.Get(q.Field).Canonical(),
			Timestamp:  at,
		})
	}
	return trail
}
