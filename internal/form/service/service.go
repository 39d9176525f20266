// Package service hosts the navigation state machine. It owns session
// lifecycle end to end: opening and resuming, the next/previous/submit
// transitions, the review gate, and cancellation. All persistence goes
// through the definition's strategy; all rule evaluation goes through the
// pure engine functions.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"

	"formflow/internal/audit"
	"formflow/internal/form"
	"formflow/internal/form/metrics"
	"formflow/internal/form/models"
	"formflow/internal/form/store"
	"formflow/internal/form/strategy"
	id "formflow/pkg/domain"
	domainerrors "formflow/pkg/domain-errors"
)

var tracer = otel.Tracer("formflow.session")

// tokenTTL bounds how long an issued session token stays valid.
const tokenTTL = 2 * time.Hour

// TokenIssuer signs the session token returned on open.
type TokenIssuer interface {
	GenerateSessionToken(sessionID id.SessionID, formType id.FormType, expiresIn time.Duration) (string, error)
}

// Publisher is the audit emission surface the service needs.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service drives form sessions. One transition runs at a time per session;
// a transition that arrives while another holds the session is rejected
// rather than queued, mirroring a UI that disables its buttons while a write
// is outstanding.
type Service struct {
	registry *form.Registry
	records  store.RecordStore
	sessions store.SessionStore
	tokens   TokenIssuer
	auditor  Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[id.SessionID]*sync.Mutex
}

func New(
	registry *form.Registry,
	records store.RecordStore,
	sessions store.SessionStore,
	tokens TokenIssuer,
	auditor Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		registry: registry,
		records:  records,
		sessions: sessions,
		tokens:   tokens,
		auditor:  auditor,
		metrics:  m,
		logger:   logger,
		locks:    make(map[id.SessionID]*sync.Mutex),
	}
}

// acquire takes the session's transition lock without blocking. The second
// of two concurrent transitions loses and surfaces an invalid-state error.
func (s *Service) acquire(sessionID id.SessionID) (release func(), err error) {
	s.mu.Lock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	s.mu.Unlock()

	if !lock.TryLock() {
		return nil, domainerrors.New(domainerrors.CodeInvalidState, "another transition is in flight for this session")
	}
	return lock.Unlock, nil
}

// forget drops a terminal session's lock.
func (s *Service) forget(sessionID id.SessionID) {
	s.mu.Lock()
	delete(s.locks, sessionID)
	s.mu.Unlock()
}

func (s *Service) strategyFor(def *models.FormDefinition) (strategy.Strategy, error) {
	return strategy.ForKind(def.Strategy, s.records)
}

// hashResumeToken derives the stored hash for a draft's resume token.
func hashResumeToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", domainerrors.Wrap(domainerrors.CodeInternal, "hash resume token", err)
	}
	return string(hash), nil
}

func verifyResumeToken(hash, token string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return domainerrors.New(domainerrors.CodeUnauthorized, "resume token does not match")
	}
	return nil
}
