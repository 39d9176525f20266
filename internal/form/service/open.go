package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"formflow/internal/audit"
	"formflow/internal/form"
	"formflow/internal/form/models"
	id "formflow/pkg/domain"
	domainerrors "formflow/pkg/domain-errors"
	"formflow/pkg/platform/sentinel"
	"formflow/pkg/requestcontext"
)

// Open starts a session. With an empty record id the session is fresh; with
// one it resumes from durable state, re-fetching the record rather than
// trusting anything the client remembers.
func (s *Service) Open(ctx context.Context, formType id.FormType, req models.OpenSessionRequest) (models.SessionResponse, error) {
	ctx, span := tracer.Start(ctx, "session.Open", trace.WithAttributes(
		attribute.String("form_type", formType.String()),
		attribute.Bool("resume", req.RecordID != ""),
	))
	defer span.End()

	def, err := s.registry.Lookup(formType)
	if err != nil {
		span.RecordError(err)
		return models.SessionResponse{}, err
	}

	now := requestcontext.Now(ctx)
	snap := models.SessionSnapshot{
		ID:        id.NewSessionID(),
		FormType:  def.Type,
		State:     models.StateInitializing,
		Answers:   map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	var (
		answers     = models.NewAnswerSet()
		resumeToken string
	)

	switch {
	case req.RecordID != "":
		answers, err = s.loadRecord(ctx, &def, id.RecordID(req.RecordID), req.ResumeToken)
		if err != nil {
			span.RecordError(err)
			return models.SessionResponse{}, err
		}
		snap.RecordID = id.RecordID(req.RecordID)

	case def.Strategy == models.StrategyFieldPatch:
		err := domainerrors.New(domainerrors.CodeInvalidInput,
			fmt.Sprintf("form %s edits an existing record, a record id is required", def.Type))
		span.RecordError(err)
		return models.SessionResponse{}, err

	default:
		if def.Storage.TokenHashField != "" {
			resumeToken = uuid.NewString()
			hash, err := hashResumeToken(resumeToken)
			if err != nil {
				span.RecordError(err)
				return models.SessionResponse{}, err
			}
			snap.ResumeTokenHash = hash
		}
	}

	visible := form.Visible(&def, answers, s.logger)
	if len(visible) == 0 {
		return models.SessionResponse{}, s.failSession(ctx, &def, snap, "no visible questions")
	}

	snap.State = models.StateAnswering
	snap.Index = form.ResumeIndex(visible, answers)
	snap.Answers = dehydrate(answers)
	if err := s.sessions.Save(ctx, snap); err != nil {
		span.RecordError(err)
		return models.SessionResponse{}, domainerrors.Wrap(domainerrors.CodePersistence, "save session", err)
	}

	token, err := s.tokens.GenerateSessionToken(snap.ID, def.Type, tokenTTL)
	if err != nil {
		span.RecordError(err)
		return models.SessionResponse{}, domainerrors.Wrap(domainerrors.CodeInternal, "issue session token", err)
	}

	action := audit.ActionSessionOpened
	if req.RecordID != "" {
		action = audit.ActionSessionResumed
		s.metrics.IncSessionsResumed(def.Type.String())
	} else {
		s.metrics.IncSessionsOpened(def.Type.String())
	}
	s.auditor.Emit(ctx, audit.Event{
		SessionID: snap.ID,
		FormType:  def.Type,
		RecordID:  snap.RecordID,
		Action:    action,
		Detail:    fmt.Sprintf("index=%d", snap.Index),
	})

	resp := s.response(&def, snap, visible, answers, nil, nil)
	resp.Token = token
	resp.ResumeToken = resumeToken
	return resp, nil
}

// State reloads the session and rebuilds the current view without mutating
// anything.
func (s *Service) State(ctx context.Context, sessionID id.SessionID) (models.SessionResponse, error) {
	ctx, span := tracer.Start(ctx, "session.State")
	defer span.End()

	def, snap, answers, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return models.SessionResponse{}, err
	}
	visible := form.Visible(&def, answers, s.logger)

	// Scores shown on the review screen are derived, never stored; they are
	// recomputed on every view.
	var summary map[string]any
	if snap.State == models.StateReviewing {
		if summary, err = s.reviewSummary(&def, answers, visible); err != nil {
			span.RecordError(err)
			return models.SessionResponse{}, err
		}
	}
	return s.response(&def, snap, visible, answers, nil, summary), nil
}

// loadRecord re-fetches a persisted record and maps it back into typed
// answers, checking the resume token when the definition protects drafts.
func (s *Service) loadRecord(ctx context.Context, def *models.FormDefinition, recordID id.RecordID, token string) (models.AnswerSet, error) {
	fields, err := s.records.Read(ctx, def.Storage.Table, def.Storage.IDColumn, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, fmt.Sprintf("record %s not found", recordID))
		}
		return nil, domainerrors.Wrap(domainerrors.CodePersistence, fmt.Sprintf("read record %s", recordID), err)
	}

	if def.Storage.TokenHashField != "" {
		hash, _ := fields[def.Storage.TokenHashField].(string)
		if hash == "" {
			return nil, domainerrors.New(domainerrors.CodeUnauthorized, "record has no resume token")
		}
		if err := verifyResumeToken(hash, token); err != nil {
			return nil, err
		}
	}

	answers := models.NewAnswerSet()
	for _, q := range def.Questions {
		stored, ok := fields[q.Field]
		if !ok || stored == nil {
			continue
		}
		v, err := models.FromStored(q.Kind, stored)
		if err != nil {
			// A column holding something the kind cannot represent is a
			// definition/schema mismatch, not a respondent mistake.
			return nil, domainerrors.Wrap(domainerrors.CodeConfiguration,
				fmt.Sprintf("field %s cannot be loaded", q.Field), err)
		}
		answers.Set(q.Field, v)
	}
	return answers, nil
}
