package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"formflow/internal/form/models"
	id "formflow/pkg/domain"
	"formflow/pkg/platform/sentinel"
)

// In-memory stores keep dev and tests lightweight. They intentionally favor
// clarity over performance.
type InMemoryRecordStore struct {
	mu     sync.RWMutex
	tables map[string]map[id.RecordID]Fields
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{tables: make(map[string]map[id.RecordID]Fields)}
}

func (s *InMemoryRecordStore) Create(_ context.Context, table string, fields Fields) (id.RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recordID := id.RecordID(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if s.tables[table] == nil {
		s.tables[table] = make(map[id.RecordID]Fields)
	}
	s.tables[table][recordID] = cloneFields(fields)
	return recordID, nil
}

func (s *InMemoryRecordStore) Update(_ context.Context, table, _ string, recordID id.RecordID, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.tables[table][recordID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for k, v := range fields {
		row[k] = v
	}
	return nil
}

func (s *InMemoryRecordStore) Read(_ context.Context, table, _ string, recordID id.RecordID) (Fields, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.tables[table][recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneFields(row), nil
}

func (s *InMemoryRecordStore) Insert(_ context.Context, table string, fields Fields) error {
	_, err := s.Create(context.Background(), table, fields)
	return err
}

// Rows returns a copy of a table's contents, for test assertions on
// insert-once writes whose ids the caller never sees.
func (s *InMemoryRecordStore) Rows(table string) map[id.RecordID]Fields {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.RecordID]Fields, len(s.tables[table]))
	for recordID, fields := range s.tables[table] {
		out[recordID] = cloneFields(fields)
	}
	return out
}

// Seed places a row under a known id, for field-patch tests and fixtures.
func (s *InMemoryRecordStore) Seed(table string, recordID id.RecordID, fields Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables[table] == nil {
		s.tables[table] = make(map[id.RecordID]Fields)
	}
	s.tables[table][recordID] = cloneFields(fields)
}

func cloneFields(in Fields) Fields {
	out := make(Fields, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// InMemorySessionStore keeps session snapshots in a map. No TTL: dev
// processes are short-lived.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]models.SessionSnapshot
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[id.SessionID]models.SessionSnapshot)}
}

func (s *InMemorySessionStore) Save(_ context.Context, snapshot models.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[snapshot.ID] = snapshot
	return nil
}

func (s *InMemorySessionStore) Find(_ context.Context, sessionID id.SessionID) (models.SessionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if snap, ok := s.sessions[sessionID]; ok {
		return snap, nil
	}
	return models.SessionSnapshot{}, sentinel.ErrNotFound
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
