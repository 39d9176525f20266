// Package audit records the lifecycle of every form session: opens, resumes,
// answer commits, submissions, cancellations. These events are the engine's
// history; the per-record audit trail column only ever holds the form's
// current shape, so anything that needs "what happened when" reads from here.
package audit

import (
	"time"

	id "formflow/pkg/domain"
)

// Action names one session lifecycle step.
type Action string

const (
	ActionSessionOpened   Action = "session_opened"
	ActionSessionResumed  Action = "session_resumed"
	ActionAnswerCommitted Action = "answer_committed"
	ActionSubmitted       Action = "submitted"
	ActionReviewEntered   Action = "review_entered"
	ActionConfirmed       Action = "confirmed"
	ActionCancelled       Action = "cancelled"
	ActionSessionFailed   Action = "session_failed"
)

// Event is emitted from the session service to capture one lifecycle step.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Timestamp time.Time
	SessionID id.SessionID
	FormType  id.FormType
	RecordID  id.RecordID
	Action    Action
	// QuestionID and Field are set for answer_committed events only.
	QuestionID string
	Field      string
	// Enrichment from the HTTP request context.
	RequestID string
	ClientIP  string
	UserAgent string
	// Detail carries action-specific extras, such as the reason a session
	// failed or the resume index chosen on reopen.
	Detail string
}
