package models

import "time"

// AuditEntry snapshots one visible question/answer pair at commit time.
type AuditEntry struct {
	QuestionID string    `json:"question_id"`
	Label      string    `json:"label"`
	Answer     any       `json:"answer"`
	Timestamp  time.Time `json:"timestamp"`
}

// AuditTrail is the ordered snapshot of every currently visible question at
// the moment of the most recent commit. It is rebuilt, not appended: entries
// for questions hidden by a later answer change disappear from the trail.
// This is a deliberate final-state-only audit; the lifecycle event pipeline
// (internal/audit) retains the full history of commits for forensics.
type AuditTrail []AuditEntry
