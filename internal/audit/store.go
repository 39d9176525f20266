package audit

import (
	"context"
	"sync"

	id "formflow/pkg/domain"
)

// Sink receives audit events. Stores persist them; the Kafka publisher
// forwards them to the event pipeline.
type Sink interface {
	Append(ctx context.Context, events []Event) error
}

// Store is a queryable sink.
type Store interface {
	Sink
	ListBySession(ctx context.Context, sessionID id.SessionID) ([]Event, error)
}

// MemoryStore keeps events in memory for dev and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *MemoryStore) ListBySession(_ context.Context, sessionID id.SessionID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, event := range s.events {
		if event.SessionID == sessionID {
			out = append(out, event)
		}
	}
	return out, nil
}

// All returns every stored event, for test assertions.
func (s *MemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
