package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"formflow/internal/audit"
	"formflow/internal/form"
	"formflow/internal/form/models"
	"formflow/internal/form/store"
	id "formflow/pkg/domain"
	domainerrors "formflow/pkg/domain-errors"
	"formflow/pkg/requestcontext"
)

// Next validates the current question's answer, persists it per the active
// strategy, recomputes visibility, and advances. A persistence failure keeps
// the answer in the session but blocks the advance so the respondent can
// retry; the answer set is never rolled back.
func (s *Service) Next(ctx context.Context, sessionID id.SessionID, req models.AnswerRequest) (models.SessionResponse, error) {
	ctx, span := tracer.Start(ctx, "session.Next")
	defer span.End()
	start := time.Now()

	release, err := s.acquire(sessionID)
	if err != nil {
		return models.SessionResponse{}, err
	}
	defer release()

	def, snap, answers, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return models.SessionResponse{}, err
	}
	span.SetAttributes(attribute.String("form_type", def.Type.String()))
	if snap.State != models.StateAnswering {
		return models.SessionResponse{}, domainerrors.New(domainerrors.CodeInvalidState,
			fmt.Sprintf("cannot answer in state %s", snap.State))
	}

	visible := form.Visible(&def, answers, s.logger)
	if snap.Index >= len(visible) {
		return models.SessionResponse{}, s.failSession(ctx, &def, snap, "current question is undefined")
	}
	q := visible[snap.Index]

	value, err := models.ParseValue(q.Kind, req.Value)
	if err != nil {
		s.metrics.IncValidationFailures(def.Type.String())
		return s.response(&def, snap, visible, answers, map[string]error{q.Field: err}, nil), err
	}
	schema := form.BuildSchema(visible)
	if err := schema.ValidateField(q.Field, value); err != nil {
		s.metrics.IncValidationFailures(def.Type.String())
		return s.response(&def, snap, visible, answers, map[string]error{q.Field: err}, nil), err
	}

	answers.Set(q.Field, value)
	snap.Answers = dehydrate(answers)

	// Visibility can change answer to answer, so the question list is
	// recomputed before the trail is rebuilt and before the index moves.
	visible = form.Visible(&def, answers, s.logger)

	strat, err := s.strategyFor(&def)
	if err != nil {
		return models.SessionResponse{}, err
	}
	fields := store.Fields{q.Field: value.Canonical()}
	if def.Storage.AuditField != "" {
		blob, err := auditTrailBlob(ctx, answers, visible)
		if err != nil {
			return models.SessionResponse{}, err
		}
		fields[def.Storage.AuditField] = blob
	}
	if snap.RecordID.IsZero() {
		if def.Storage.TokenHashField != "" && snap.ResumeTokenHash != "" {
			fields[def.Storage.TokenHashField] = snap.ResumeTokenHash
		}
		recordID, err := strat.FirstCommit(ctx, &def, fields)
		if err != nil {
			return s.blockAdvance(ctx, &def, snap, visible, answers, err)
		}
		snap.RecordID = recordID
	} else {
		if err := strat.Commit(ctx, &def, snap.RecordID, fields); err != nil {
			return s.blockAdvance(ctx, &def, snap, visible, answers, err)
		}
	}

	pos := questionPosition(visible, q.ID)
	if pos == -1 {
		return models.SessionResponse{}, s.failSession(ctx, &def, snap, "current question vanished from the visible set")
	}
	if pos+1 < len(visible) {
		snap.Index = pos + 1
	} else {
		snap.Index = len(visible) - 1
	}

	if err := s.save(ctx, snap); err != nil {
		span.RecordError(err)
		return models.SessionResponse{}, err
	}

	s.metrics.IncAnswersCommitted(def.Type.String())
	s.metrics.ObserveTransition(def.Type.String(), "next", start)
	s.auditor.Emit(ctx, audit.Event{
		SessionID:  snap.ID,
		FormType:   def.Type,
		RecordID:   snap.RecordID,
		Action:     audit.ActionAnswerCommitted,
		QuestionID: q.ID,
		Field:      q.Field,
	})

	return s.response(&def, snap, visible, answers, nil, nil), nil
}

// Previous steps back one question. No persistence, no re-validation; while
// a write is in flight the transition lock rejects it.
func (s *Service) Previous(ctx context.Context, sessionID id.SessionID) (models.SessionResponse, error) {
	ctx, span := tracer.Start(ctx, "session.Previous")
	defer span.End()

	release, err := s.acquire(sessionID)
	if err != nil {
		return models.SessionResponse{}, err
	}
	defer release()

	def, snap, answers, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return models.SessionResponse{}, err
	}
	visible := form.Visible(&def, answers, s.logger)

	switch snap.State {
	case models.StateReviewing:
		// Leaving review returns to the last question; from there the
		// respondent can walk back as far as they like.
		snap.State = models.StateAnswering
		if len(visible) > 0 {
			snap.Index = len(visible) - 1
		}
	case models.StateAnswering:
		if snap.Index == 0 {
			return models.SessionResponse{}, domainerrors.New(domainerrors.CodeInvalidState, "already at the first question")
		}
		snap.Index--
	default:
		return models.SessionResponse{}, domainerrors.New(domainerrors.CodeInvalidState,
			fmt.Sprintf("cannot navigate in state %s", snap.State))
	}

	if err := s.save(ctx, snap); err != nil {
		span.RecordError(err)
		return models.SessionResponse{}, err
	}
	return s.response(&def, snap, visible, answers, nil, nil), nil
}

// Submit runs the terminal transition from the last visible question:
// whole-record validation, then either the strategy's terminal write or,
// for review-gated forms, the reviewing state with a score summary.
func (s *Service) Submit(ctx context.Context, sessionID id.SessionID) (models.SessionResponse, error) {
	ctx, span := tracer.Start(ctx, "session.Submit")
	defer span.End()
	start := time.Now()

	release, err := s.acquire(sessionID)
	if err != nil {
		return models.SessionResponse{}, err
	}
	defer release()

	def, snap, answers, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return models.SessionResponse{}, err
	}
	span.SetAttributes(attribute.String("form_type", def.Type.String()))
	if snap.State != models.StateAnswering {
		return models.SessionResponse{}, domainerrors.New(domainerrors.CodeInvalidState,
			fmt.Sprintf("cannot submit in state %s", snap.State))
	}

	visible := form.Visible(&def, answers, s.logger)
	if len(visible) == 0 {
		return models.SessionResponse{}, s.failSession(ctx, &def, snap, "no visible questions")
	}
	if snap.Index != len(visible)-1 {
		return models.SessionResponse{}, domainerrors.New(domainerrors.CodeInvalidState,
			"submit is only available on the last question")
	}

	schema := form.BuildSchema(visible)
	if errs := schema.ValidateAll(answers); errs != nil {
		s.metrics.IncValidationFailures(def.Type.String())
		resp := s.response(&def, snap, visible, answers, errs, nil)
		return resp, domainerrors.New(domainerrors.CodeValidation, "record has invalid fields")
	}

	if def.RequireReview {
		summary, err := s.reviewSummary(&def, answers, visible)
		if err != nil {
			span.RecordError(err)
			return models.SessionResponse{}, err
		}
		snap.State = models.StateReviewing
		if err := s.save(ctx, snap); err != nil {
			span.RecordError(err)
			return models.SessionResponse{}, err
		}
		s.auditor.Emit(ctx, audit.Event{
			SessionID: snap.ID,
			FormType:  def.Type,
			RecordID:  snap.RecordID,
			Action:    audit.ActionReviewEntered,
		})
		return s.response(&def, snap, visible, answers, nil, summary), nil
	}

	resp, err := s.finalize(ctx, &def, snap, answers, visible, audit.ActionSubmitted)
	if err == nil {
		s.metrics.ObserveTransition(def.Type.String(), "submit", start)
	}
	return resp, err
}

// Confirm performs the review gate's one combined write.
func (s *Service) Confirm(ctx context.Context, sessionID id.SessionID) (models.SessionResponse, error) {
	ctx, span := tracer.Start(ctx, "session.Confirm")
	defer span.End()
	start := time.Now()

	release, err := s.acquire(sessionID)
	if err != nil {
		return models.SessionResponse{}, err
	}
	defer release()

	def, snap, answers, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return models.SessionResponse{}, err
	}
	if snap.State != models.StateReviewing {
		return models.SessionResponse{}, domainerrors.New(domainerrors.CodeInvalidState,
			fmt.Sprintf("cannot confirm in state %s", snap.State))
	}

	visible := form.Visible(&def, answers, s.logger)
	resp, err := s.finalize(ctx, &def, snap, answers, visible, audit.ActionConfirmed)
	if err == nil {
		s.metrics.ObserveTransition(def.Type.String(), "confirm", start)
	}
	return resp, err
}

// Cancel closes the session locally. Persisted drafts stay behind and any
// in-flight write is left to finish on its own.
func (s *Service) Cancel(ctx context.Context, sessionID id.SessionID) (models.SessionResponse, error) {
	ctx, span := tracer.Start(ctx, "session.Cancel")
	defer span.End()

	release, err := s.acquire(sessionID)
	if err != nil {
		return models.SessionResponse{}, err
	}
	defer release()

	def, snap, answers, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return models.SessionResponse{}, err
	}
	if snap.State.Terminal() {
		return models.SessionResponse{}, domainerrors.New(domainerrors.CodeInvalidState,
			fmt.Sprintf("session is already %s", snap.State))
	}

	snap.State = models.StateCancelled
	if err := s.save(ctx, snap); err != nil {
		span.RecordError(err)
		return models.SessionResponse{}, err
	}
	s.forget(snap.ID)
	s.metrics.IncCancellations(def.Type.String())
	s.auditor.Emit(ctx, audit.Event{
		SessionID: snap.ID,
		FormType:  def.Type,
		RecordID:  snap.RecordID,
		Action:    audit.ActionCancelled,
	})

	visible := form.Visible(&def, answers, s.logger)
	return s.response(&def, snap, visible, answers, nil, nil), nil
}

// finalize performs the terminal write and moves the session to submitted.
// On a failed write the session returns to answering; nothing already
// committed is lost and the transition can be retried.
func (s *Service) finalize(ctx context.Context, def *models.FormDefinition, snap models.SessionSnapshot, answers models.AnswerSet, visible []models.Question, action audit.Action) (models.SessionResponse, error) {
	priorState := snap.State
	snap.State = models.StateSubmitting
	if err := s.save(ctx, snap); err != nil {
		return models.SessionResponse{}, err
	}

	fields := store.Fields(visibleFields(answers, visible))
	var summary map[string]any
	if def.Finalizer != nil {
		finalFields, reviewSummary, err := def.Finalizer.Finalize(def, answers, visible)
		if err != nil {
			snap.State = priorState
			_ = s.save(ctx, snap)
			return models.SessionResponse{}, err
		}
		fields = store.Fields(finalFields)
		summary = reviewSummary
	}
	if def.Storage.AuditField != "" {
		blob, err := auditTrailBlob(ctx, answers, visible)
		if err != nil {
			snap.State = priorState
			_ = s.save(ctx, snap)
			return models.SessionResponse{}, err
		}
		fields[def.Storage.AuditField] = blob
	}

	strat, err := s.strategyFor(def)
	if err != nil {
		snap.State = priorState
		_ = s.save(ctx, snap)
		return models.SessionResponse{}, err
	}
	recordID, err := strat.Submit(ctx, def, snap.RecordID, fields)
	if err != nil {
		s.metrics.IncPersistenceFailures(def.Type.String())
		snap.State = priorState
		if saveErr := s.save(ctx, snap); saveErr != nil {
			s.logger.ErrorContext(ctx, "failed to restore session state after submit failure",
				"session_id", snap.ID, "error", saveErr)
		}
		return s.response(def, snap, visible, answers, nil, nil), err
	}
	if !recordID.IsZero() {
		snap.RecordID = recordID
	}

	snap.State = models.StateSubmitted
	if err := s.save(ctx, snap); err != nil {
		return models.SessionResponse{}, err
	}
	s.forget(snap.ID)
	s.metrics.IncSubmissions(def.Type.String())
	s.auditor.Emit(ctx, audit.Event{
		SessionID: snap.ID,
		FormType:  def.Type,
		RecordID:  snap.RecordID,
		Action:    action,
	})

	return s.response(def, snap, visible, answers, nil, summary), nil
}

// reviewSummary computes the review screen's payload without writing.
func (s *Service) reviewSummary(def *models.FormDefinition, answers models.AnswerSet, visible []models.Question) (map[string]any, error) {
	if def.Finalizer == nil {
		return nil, nil
	}
	_, summary, err := def.Finalizer.Finalize(def, answers, visible)
	return summary, err
}

// blockAdvance records a persistence failure: the answer stays in the
// session, the index does not move, and the caller gets a retryable error.
func (s *Service) blockAdvance(ctx context.Context, def *models.FormDefinition, snap models.SessionSnapshot, visible []models.Question, answers models.AnswerSet, cause error) (models.SessionResponse, error) {
	s.metrics.IncPersistenceFailures(def.Type.String())
	if err := s.save(ctx, snap); err != nil {
		s.logger.ErrorContext(ctx, "failed to save session after persistence failure",
			"session_id", snap.ID, "error", err)
	}
	return s.response(def, snap, visible, answers, nil, nil), cause
}

// auditTrailBlob rebuilds the current-state audit snapshot for the record's
// audit column. It rides along with every write the active strategy makes,
// so a draft read back mid-flow already carries the trail of its last save.
func auditTrailBlob(ctx context.Context, answers models.AnswerSet, visible []models.Question) (string, error) {
	trail := form.BuildAudit(answers, visible, requestcontext.Now(ctx))
	blob, err := json.Marshal(trail)
	if err != nil {
		return "", domainerrors.Wrap(domainerrors.CodeInternal, "marshal audit trail", err)
	}
	return string(blob), nil
}

func questionPosition(visible []models.Question, questionID string) int {
	for i, q := range visible {
		if q.ID == questionID {
			return i
		}
	}
	return -1
}
