package models

import "encoding/json"

// OpenSessionRequest starts a new session or resumes a persisted record.
type OpenSessionRequest struct {
	// RecordID resumes an existing record (draft-update resume or
	// field-patch editing). Empty starts a fresh session.
	RecordID string `json:"record_id,omitempty"`
	// ResumeToken must match the hash stored on a draft record when the
	// definition protects drafts with resume tokens.
	ResumeToken string `json:"resume_token,omitempty"`
}

// AnswerRequest carries the current question's raw answer for a next
// transition. The payload stays raw JSON until the question's kind decides
// how to parse it.
type AnswerRequest struct {
	Value json.RawMessage `json:"value"`
}
