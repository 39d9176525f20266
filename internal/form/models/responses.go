package models

// Progress reports the respondent's position within the visible question
// list. Total changes as answers reveal or hide questions.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// QuestionView is the display projection of the current question, including
// any answer already given (for back navigation and resume).
type QuestionView struct {
	ID         string   `json:"id"`
	Field      string   `json:"field"`
	Kind       string   `json:"kind"`
	Label      string   `json:"label"`
	HelperText string   `json:"helper_text,omitempty"`
	Options    []Option `json:"options,omitempty"`
	Answer     any      `json:"answer"`
}

// SessionResponse is the engine's full UI-facing surface: current question,
// progress, per-field errors, and the session state.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	FormType  string `json:"form_type"`
	State     string `json:"state"`
	// Token is only present on open; subsequent calls authenticate with it.
	Token    string            `json:"token,omitempty"`
	Question *QuestionView     `json:"question,omitempty"`
	Progress Progress          `json:"progress"`
	Errors   map[string]string `json:"errors,omitempty"`
	// RecordID is set once a durable record exists.
	RecordID string `json:"record_id,omitempty"`
	// ResumeToken is returned exactly once, when the draft record is first
	// created; only its hash is stored.
	ResumeToken string `json:"resume_token,omitempty"`
	// Summary carries the review-screen payload while the session is in the
	// reviewing state.
	Summary map[string]any `json:"summary,omitempty"`
}
