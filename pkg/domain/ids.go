// Package domain holds value types shared across layers. Identifiers are
// distinct types so a session id can never be passed where a record id is
// expected; construct them via Parse* at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "formflow/pkg/domain-errors"
)

// SessionID identifies one in-progress form session.
type SessionID uuid.UUID

// NewSessionID mints a random session identifier.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// ParseSessionID constructs a SessionID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed, or the
// nil UUID; no other errors are expected.
func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid session id")
	}
	if u == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session id cannot be nil")
	}
	return SessionID(u), nil
}

func (id SessionID) String() string { return uuid.UUID(id).String() }

// MarshalText lets session ids serialize as canonical UUID strings in JSON
// snapshots instead of byte arrays.
func (id SessionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *SessionID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = SessionID(u)
	return nil
}

// IsZero reports whether the id is unset.
func (id SessionID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// RecordID is the external record store's identifier for a persisted row.
// It is opaque to the engine: the store generates it on Create and the
// engine only carries it around for subsequent patches.
type RecordID string

func (id RecordID) String() string { return string(id) }

// IsZero reports whether no record has been created yet.
func (id RecordID) IsZero() bool { return id == "" }

// FormType is the logical name of a registered form definition.
type FormType string

func (t FormType) String() string { return string(t) }

// ParseFormType constructs a FormType from external input.
func ParseFormType(s string) (FormType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "form type cannot be empty")
	}
	return FormType(s), nil
}
