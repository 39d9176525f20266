// Package store holds the engine's persistence interfaces and their
// implementations. Stores are interface-driven so the in-memory, PostgreSQL,
// and Redis variants stay interchangeable without rewiring business code.
package store

import (
	"context"

	"formflow/internal/form/models"
	id "formflow/pkg/domain"
)

// Fields is one record's column/value map. Values are canonical answer
// encodings (string, float64, bool, nil) plus JSON-encoded strings for
// structured blobs such as audit trails.
type Fields map[string]any

// RecordStore is the engine's entire view of the external record system:
// four operations, implementable over any key-value or relational store.
// No other database shape is assumed.
//
//go:generate mockgen -source=store.go -destination=mocks/store_mocks.go -package=mocks RecordStore
type RecordStore interface {
	// Create inserts a new row and returns its generated identifier.
	Create(ctx context.Context, table string, fields Fields) (id.RecordID, error)
	// Update patches an existing row by identifier.
	Update(ctx context.Context, table, idColumn string, recordID id.RecordID, fields Fields) error
	// Read loads a row by identifier. Returns sentinel.ErrNotFound when the
	// row does not exist.
	Read(ctx context.Context, table, idColumn string, recordID id.RecordID) (Fields, error)
	// Insert fires an insert that needs no returned identifier.
	Insert(ctx context.Context, table string, fields Fields) error
}

// SessionStore persists in-progress session snapshots so a respondent can
// reconnect and resume. Implementations: memory (dev/tests) and Redis with
// TTL (production).
type SessionStore interface {
	Save(ctx context.Context, snapshot models.SessionSnapshot) error
	// Find returns sentinel.ErrNotFound for unknown or expired sessions.
	Find(ctx context.Context, sessionID id.SessionID) (models.SessionSnapshot, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
}
