package service

import (
	"context"
	"errors"
	"fmt"

	"formflow/internal/audit"
	"formflow/internal/form/models"
	id "formflow/pkg/domain"
	domainerrors "formflow/pkg/domain-errors"
	"formflow/pkg/platform/sentinel"
	"formflow/pkg/requestcontext"
)

// load fetches the snapshot and its definition and re-types the canonical
// answer map against the definition's kinds.
func (s *Service) load(ctx context.Context, sessionID id.SessionID) (models.FormDefinition, models.SessionSnapshot, models.AnswerSet, error) {
	snap, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.FormDefinition{}, models.SessionSnapshot{}, nil,
				domainerrors.New(domainerrors.CodeNotFound, "session not found or expired")
		}
		return models.FormDefinition{}, models.SessionSnapshot{}, nil,
			domainerrors.Wrap(domainerrors.CodePersistence, "load session", err)
	}
	def, err := s.registry.Lookup(snap.FormType)
	if err != nil {
		return models.FormDefinition{}, models.SessionSnapshot{}, nil, err
	}
	answers, err := hydrate(&def, snap.Answers)
	if err != nil {
		return models.FormDefinition{}, models.SessionSnapshot{}, nil, err
	}
	return def, snap, answers, nil
}

// save writes the snapshot back with a fresh update time.
func (s *Service) save(ctx context.Context, snap models.SessionSnapshot) error {
	snap.UpdatedAt = requestcontext.Now(ctx)
	if err := s.sessions.Save(ctx, snap); err != nil {
		return domainerrors.Wrap(domainerrors.CodePersistence, "save session", err)
	}
	return nil
}

// failSession terminates a misconfigured session into an explicit error
// state. The caller surfaces the configuration error; the snapshot records
// that the session is dead so later calls see a terminal state instead of a
// silent blank.
func (s *Service) failSession(ctx context.Context, def *models.FormDefinition, snap models.SessionSnapshot, reason string) error {
	snap.State = models.StateFailed
	if err := s.save(ctx, snap); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist failed session state",
			"session_id", snap.ID, "error", err)
	}
	s.forget(snap.ID)
	s.auditor.Emit(ctx, audit.Event{
		SessionID: snap.ID,
		FormType:  def.Type,
		RecordID:  snap.RecordID,
		Action:    audit.ActionSessionFailed,
		Detail:    reason,
	})
	s.logger.ErrorContext(ctx, "form session failed",
		"session_id", snap.ID,
		"form_type", def.Type,
		"reason", reason,
	)
	return domainerrors.New(domainerrors.CodeConfiguration, reason)
}

// response projects the session into its UI-facing shape.
func (s *Service) response(def *models.FormDefinition, snap models.SessionSnapshot, visible []models.Question, answers models.AnswerSet, fieldErrs map[string]error, summary map[string]any) models.SessionResponse {
	resp := models.SessionResponse{
		SessionID: snap.ID.String(),
		FormType:  def.Type.String(),
		State:     string(snap.State),
		RecordID:  snap.RecordID.String(),
		Progress:  models.Progress{Current: snap.Index + 1, Total: len(visible)},
		Summary:   summary,
	}
	if snap.State == models.StateAnswering && snap.Index < len(visible) {
		q := visible[snap.Index]
		resp.Question = &models.QuestionView{
			ID:         q.ID,
			Field:      q.Field,
			Kind:       string(q.Kind),
			Label:      q.Label,
			HelperText: q.HelperText,
			Options:    q.Options,
			Answer:     answers.Get(q.Field).Canonical(),
		}
	}
	if len(fieldErrs) > 0 {
		resp.Errors = make(map[string]string, len(fieldErrs))
		for field, err := range fieldErrs {
			resp.Errors[field] = err.Error()
		}
	}
	return resp
}

// hydrate re-types a snapshot's canonical answers against the definition.
func hydrate(def *models.FormDefinition, raw map[string]any) (models.AnswerSet, error) {
	answers := models.NewAnswerSet()
	for field, stored := range raw {
		q := def.QuestionByField(field)
		if q == nil {
			// Definitions can change between deploys; an orphaned answer is
			// dropped rather than fatal.
			continue
		}
		v, err := models.FromStored(q.Kind, stored)
		if err != nil {
			return nil, domainerrors.Wrap(domainerrors.CodeInternal,
				fmt.Sprintf("session answer %s cannot be re-typed", field), err)
		}
		answers.Set(field, v)
	}
	return answers, nil
}

// dehydrate flattens typed answers into the snapshot's canonical map.
func dehydrate(answers models.AnswerSet) map[string]any {
	out := make(map[string]any, len(answers))
	for field, v := range answers {
		out[field] = v.Canonical()
	}
	return out
}

// visibleFields collects every visible question's canonical value, the field
// set a terminal write carries.
func visibleFields(answers models.AnswerSet, visible []models.Question) map[string]any {
	out := make(map[string]any, len(visible))
	for _, q := range visible {
		out[q.Field] = answers.Get(q.Field).Canonical()
	}
	return out
}
