package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formflow/internal/audit"
	"formflow/internal/form"
	"formflow/internal/form/metrics"
	"formflow/internal/form/models"
	"formflow/internal/form/store"
	jwttoken "formflow/internal/jwt_token"
	id "formflow/pkg/domain"
	domainerrors "formflow/pkg/domain-errors"
)

// promauto registers against the default registry, so the package shares one
// metrics instance across tests.
var testMetrics = metrics.New()

type captureAuditor struct {
	events []audit.Event
}

func (c *captureAuditor) Emit(_ context.Context, event audit.Event) {
	c.events = append(c.events, event)
}

func (c *captureAuditor) actions() []audit.Action {
	out := make([]audit.Action, len(c.events))
	for i, e := range c.events {
		out[i] = e.Action
	}
	return out
}

// failingRecordStore wraps the in-memory store and fails every write.
type failingRecordStore struct {
	*store.InMemoryRecordStore
}

func (f failingRecordStore) Create(context.Context, string, store.Fields) (id.RecordID, error) {
	return "", errors.New("record store down")
}

func (f failingRecordStore) Update(context.Context, string, string, id.RecordID, store.Fields) error {
	return errors.New("record store down")
}

func onboardingDefinition() models.FormDefinition {
	return models.FormDefinition{
		Type:     id.FormType("onboarding"),
		Title:    "Company onboarding",
		Strategy: models.StrategyDraftUpdate,
		Storage: models.StorageSpec{
			Table:          "onboarding",
			IDColumn:       "id",
			StatusField:    "status",
			AuditField:     "audit",
			TokenHashField: "resume_token_hash",
		},
		Questions: []models.Question{
			{
				ID: "q1", Field: "has_company", Kind: models.KindRadio, Label: "Do you have a company?",
				Options:    []models.Option{{Value: "yes", Label: "Yes"}, {Value: "no", Label: "No"}},
				Constraint: &models.EnumConstraint{Required: true, Allowed: []string{"yes", "no"}},
			},
			{
				ID: "q2", Field: "full_name", Kind: models.KindText, Label: "Your full name",
				Constraint: &models.TextConstraint{Required: true, MinLen: 2},
			},
			{
				ID: "q3", Field: "headcount", Kind: models.KindNumber, Label: "How many employees?",
				Visibility: &models.Predicate{Field: "has_company", Op: models.OpEq, Value: "yes"},
				Constraint: &models.NumberConstraint{Required: true},
			},
		},
	}
}

type fixture struct {
	svc     *Service
	records *store.InMemoryRecordStore
	auditor *captureAuditor
}

func newFixture(t *testing.T, defs ...models.FormDefinition) *fixture {
	t.Helper()
	registry := form.NewRegistry()
	for _, def := range defs {
		require.NoError(t, registry.Register(def))
	}
	records := store.NewInMemoryRecordStore()
	auditor := &captureAuditor{}
	svc := New(
		registry,
		records,
		store.NewInMemorySessionStore(),
		jwttoken.NewJWTService("test-signing-key", "formflow"),
		auditor,
		testMetrics,
		slog.New(slog.DiscardHandler),
	)
	return &fixture{svc: svc, records: records, auditor: auditor}
}

func answer(v string) models.AnswerRequest {
	return models.AnswerRequest{Value: json.RawMessage(v)}
}

func decodeTrail(t *testing.T, raw any) models.AuditTrail {
	t.Helper()
	blob, ok := raw.(string)
	require.True(t, ok, "audit column holds a JSON string")
	var trail models.AuditTrail
	require.NoError(t, json.Unmarshal([]byte(blob), &trail))
	return trail
}

func sid(t *testing.T, resp models.SessionResponse) id.SessionID {
	t.Helper()
	parsed, err := id.ParseSessionID(resp.SessionID)
	require.NoError(t, err)
	return parsed
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh session starts at the first question", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		resp, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)

		assert.Equal(t, string(models.StateAnswering), resp.State)
		assert.NotEmpty(t, resp.Token)
		assert.NotEmpty(t, resp.ResumeToken)
		require.NotNil(t, resp.Question)
		assert.Equal(t, "has_company", resp.Question.Field)
		assert.Equal(t, models.Progress{Current: 1, Total: 2}, resp.Progress)
		assert.Empty(t, resp.RecordID, "no write before the first answer")
		assert.Equal(t, []audit.Action{audit.ActionSessionOpened}, f.auditor.actions())
	})

	t.Run("unknown form type", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		_, err := f.svc.Open(ctx, "mystery", models.OpenSessionRequest{})
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeNotFound))
	})

	t.Run("field-patch form requires a record id", func(t *testing.T) {
		def := onboardingDefinition()
		def.Type = "onboarding_edit"
		def.Strategy = models.StrategyFieldPatch
		def.Storage.StatusField = ""
		def.Storage.AuditField = ""
		def.Storage.TokenHashField = ""
		f := newFixture(t, def)

		_, err := f.svc.Open(ctx, "onboarding_edit", models.OpenSessionRequest{})
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeInvalidInput))
	})
}

func TestNext(t *testing.T) {
	ctx := context.Background()

	t.Run("first commit creates a draft and advances", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)

		resp, err := f.svc.Next(ctx, sid(t, opened), answer(`"yes"`))
		require.NoError(t, err)

		assert.Equal(t, "full_name", resp.Question.Field)
		assert.Equal(t, models.Progress{Current: 2, Total: 3}, resp.Progress, "yes reveals the headcount question")
		require.NotEmpty(t, resp.RecordID)

		row, err := f.records.Read(ctx, "onboarding", "id", id.RecordID(resp.RecordID))
		require.NoError(t, err)
		assert.Equal(t, "yes", row["has_company"])
		assert.Equal(t, "draft", row["status"])
		assert.NotEmpty(t, row["resume_token_hash"], "draft carries the resume token hash")
	})

	t.Run("each commit rebuilds the draft's audit trail", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)

		resp, err := f.svc.Next(ctx, sid(t, opened), answer(`"yes"`))
		require.NoError(t, err)

		row, err := f.records.Read(ctx, "onboarding", "id", id.RecordID(resp.RecordID))
		require.NoError(t, err)
		trail := decodeTrail(t, row["audit"])
		require.Len(t, trail, 3, "every visible question appears, answered or not")
		assert.Equal(t, "q1", trail[0].QuestionID)
		assert.Equal(t, "yes", trail[0].Answer)
		assert.Nil(t, trail[1].Answer)

		// Flipping the first answer hides headcount; the next write's
		// trail reflects the shrunken shape.
		_, err = f.svc.Previous(ctx, sid(t, opened))
		require.NoError(t, err)
		_, err = f.svc.Next(ctx, sid(t, opened), answer(`"no"`))
		require.NoError(t, err)

		row, err = f.records.Read(ctx, "onboarding", "id", id.RecordID(resp.RecordID))
		require.NoError(t, err)
		trail = decodeTrail(t, row["audit"])
		require.Len(t, trail, 2)
		assert.Equal(t, "no", trail[0].Answer)
	})

	t.Run("invalid answer blocks the advance without a write", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)

		resp, err := f.svc.Next(ctx, sid(t, opened), answer(`"maybe"`))
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeValidation))
		assert.Contains(t, resp.Errors, "has_company")

		state, err := f.svc.State(ctx, sid(t, opened))
		require.NoError(t, err)
		assert.Equal(t, "has_company", state.Question.Field, "index did not move")
		assert.Empty(t, state.RecordID)
	})

	t.Run("persistence failure keeps the answer and blocks the advance", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		f.svc.records = failingRecordStore{store.NewInMemoryRecordStore()}
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)

		_, err = f.svc.Next(ctx, sid(t, opened), answer(`"no"`))
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodePersistence))

		state, err := f.svc.State(ctx, sid(t, opened))
		require.NoError(t, err)
		assert.Equal(t, "has_company", state.Question.Field, "index did not move")
		assert.Equal(t, "no", state.Question.Answer, "answer survived the failed write")
	})

	t.Run("hiding answer shrinks the visible list", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)

		resp, err := f.svc.Next(ctx, sid(t, opened), answer(`"no"`))
		require.NoError(t, err)
		assert.Equal(t, models.Progress{Current: 2, Total: 2}, resp.Progress)
		assert.Equal(t, "full_name", resp.Question.Field)
	})

	t.Run("answering in a terminal state is rejected", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)
		_, err = f.svc.Cancel(ctx, sid(t, opened))
		require.NoError(t, err)

		_, err = f.svc.Next(ctx, sid(t, opened), answer(`"yes"`))
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeInvalidState))
	})
}

func TestPrevious(t *testing.T) {
	ctx := context.Background()

	t.Run("steps back one question without persistence", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)
		_, err = f.svc.Next(ctx, sid(t, opened), answer(`"no"`))
		require.NoError(t, err)

		resp, err := f.svc.Previous(ctx, sid(t, opened))
		require.NoError(t, err)
		assert.Equal(t, "has_company", resp.Question.Field)
		assert.Equal(t, "no", resp.Question.Answer, "earlier answer is shown again")
	})

	t.Run("rejected at the first question", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)

		_, err = f.svc.Previous(ctx, sid(t, opened))
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeInvalidState))
	})

	t.Run("rejected while another transition holds the session", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)
		sessionID := sid(t, opened)

		release, err := f.svc.acquire(sessionID)
		require.NoError(t, err)
		defer release()

		_, err = f.svc.Previous(ctx, sessionID)
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeInvalidState))
	})
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	walkToEnd := func(t *testing.T, f *fixture) id.SessionID {
		t.Helper()
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)
		sessionID := sid(t, opened)
		_, err = f.svc.Next(ctx, sessionID, answer(`"no"`))
		require.NoError(t, err)
		return sessionID
	}

	t.Run("only available on the last question", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)

		_, err = f.svc.Submit(ctx, sid(t, opened))
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeInvalidState))
	})

	t.Run("whole-record validation failures surface inline", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		sessionID := walkToEnd(t, f)

		// On the last question with full_name still empty.
		resp, err := f.svc.Submit(ctx, sessionID)
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeValidation))
		assert.Contains(t, resp.Errors, "full_name")
	})

	t.Run("terminal write flips status and stores the audit trail", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		sessionID := walkToEnd(t, f)
		resp, err := f.svc.Next(ctx, sessionID, answer(`"Ada Lovelace"`))
		require.NoError(t, err)

		final, err := f.svc.Submit(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, string(models.StateSubmitted), final.State)

		row, err := f.records.Read(ctx, "onboarding", "id", id.RecordID(resp.RecordID))
		require.NoError(t, err)
		assert.Equal(t, "submitted", row["status"])
		assert.Equal(t, "Ada Lovelace", row["full_name"])

		var trail models.AuditTrail
		require.NoError(t, json.Unmarshal([]byte(row["audit"].(string)), &trail))
		require.Len(t, trail, 2, "hidden headcount question leaves no entry")
		assert.Equal(t, "q1", trail[0].QuestionID)
		assert.Equal(t, "q2", trail[1].QuestionID)

		assert.Contains(t, f.auditor.actions(), audit.ActionSubmitted)
	})

	t.Run("failed terminal write returns to answering", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		sessionID := walkToEnd(t, f)
		_, err := f.svc.Next(ctx, sessionID, answer(`"Ada Lovelace"`))
		require.NoError(t, err)

		f.svc.records = failingRecordStore{store.NewInMemoryRecordStore()}
		_, err = f.svc.Submit(ctx, sessionID)
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodePersistence))

		state, err := f.svc.State(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, string(models.StateAnswering), state.State, "failure is recoverable")
	})

	t.Run("double submit is rejected", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		sessionID := walkToEnd(t, f)
		_, err := f.svc.Next(ctx, sessionID, answer(`"Ada Lovelace"`))
		require.NoError(t, err)
		_, err = f.svc.Submit(ctx, sessionID)
		require.NoError(t, err)

		_, err = f.svc.Submit(ctx, sessionID)
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeInvalidState))
	})
}

func TestResume(t *testing.T) {
	ctx := context.Background()

	openAndCommit := func(t *testing.T, f *fixture) (recordID, resumeToken string) {
		t.Helper()
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)
		resp, err := f.svc.Next(ctx, sid(t, opened), answer(`"yes"`))
		require.NoError(t, err)
		return resp.RecordID, opened.ResumeToken
	}

	t.Run("resume re-fetches the record and lands on the first unanswered", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		recordID, resumeToken := openAndCommit(t, f)

		resumed, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{
			RecordID:    recordID,
			ResumeToken: resumeToken,
		})
		require.NoError(t, err)
		assert.Equal(t, "full_name", resumed.Question.Field)
		assert.Equal(t, models.Progress{Current: 2, Total: 3}, resumed.Progress)
		assert.Equal(t, recordID, resumed.RecordID)
		assert.Empty(t, resumed.ResumeToken, "the plaintext token is only issued once")
		assert.Contains(t, f.auditor.actions(), audit.ActionSessionResumed)
	})

	t.Run("wrong resume token is rejected", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		recordID, _ := openAndCommit(t, f)

		_, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{
			RecordID:    recordID,
			ResumeToken: "not-the-token",
		})
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
	})

	t.Run("unknown record id", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		_, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{RecordID: "missing"})
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeNotFound))
	})

	t.Run("fully answered record opens on its last question", func(t *testing.T) {
		def := onboardingDefinition()
		def.Storage.TokenHashField = ""
		f := newFixture(t, def)
		f.records.Seed("onboarding", "rec-full", store.Fields{
			"has_company": "no",
			"full_name":   "Ada Lovelace",
			"status":      "draft",
		})

		resumed, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{RecordID: "rec-full"})
		require.NoError(t, err)
		assert.Equal(t, "full_name", resumed.Question.Field, "complete form opens at the last visible question")
		assert.Equal(t, models.Progress{Current: 2, Total: 2}, resumed.Progress)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel is local and keeps the draft", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)
		resp, err := f.svc.Next(ctx, sid(t, opened), answer(`"yes"`))
		require.NoError(t, err)

		cancelled, err := f.svc.Cancel(ctx, sid(t, opened))
		require.NoError(t, err)
		assert.Equal(t, string(models.StateCancelled), cancelled.State)

		row, err := f.records.Read(ctx, "onboarding", "id", id.RecordID(resp.RecordID))
		require.NoError(t, err)
		assert.Equal(t, "draft", row["status"], "persisted draft survives cancellation")
	})

	t.Run("cancelling twice is rejected", func(t *testing.T) {
		f := newFixture(t, onboardingDefinition())
		opened, err := f.svc.Open(ctx, "onboarding", models.OpenSessionRequest{})
		require.NoError(t, err)
		_, err = f.svc.Cancel(ctx, sid(t, opened))
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, sid(t, opened))
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeInvalidState))
	})
}
