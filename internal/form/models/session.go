package models

import (
	"time"

	id "formflow/pkg/domain"
)

// SessionState is the navigation state machine's current state.
type SessionState string

const (
	// StateInitializing covers resume-mode sessions between record load and
	// the first answerable position.
	StateInitializing SessionState = "initializing"
	StateAnswering    SessionState = "answering"
	// StateSubmitting guards against double submit while the terminal write
	// is outstanding.
	StateSubmitting SessionState = "submitting"
	// StateReviewing holds review-gated forms between submit and confirm.
	StateReviewing SessionState = "reviewing"
	StateSubmitted SessionState = "submitted"
	StateCancelled SessionState = "cancelled"
	// StateFailed marks a fatally misconfigured session (no visible
	// questions). Terminal; the UI shows an explicit error screen.
	StateFailed SessionState = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s SessionState) Terminal() bool {
	return s == StateSubmitted || s == StateCancelled || s == StateFailed
}

// SessionSnapshot is the serializable state of one in-progress session as the
// session store keeps it. Answers are stored in canonical form and re-typed
// against the definition on hydration, the same mapping used when resuming
// from a persisted record.
type SessionSnapshot struct {
	ID       id.SessionID   `json:"id"`
	FormType id.FormType    `json:"form_type"`
	State    SessionState   `json:"state"`
	Index    int            `json:"index"`
	Answers  map[string]any `json:"answers"`
	// RecordID is set once a durable record exists (draft-update after the
	// first commit, field-patch from open).
	RecordID id.RecordID `json:"record_id,omitempty"`
	// ResumeTokenHash is the bcrypt hash protecting the draft record; the
	// plaintext token is only ever returned once.
	ResumeTokenHash string    `json:"resume_token_hash,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
