package riskprofile_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formflow/internal/audit"
	"formflow/internal/form"
	"formflow/internal/form/metrics"
	"formflow/internal/form/models"
	"formflow/internal/form/service"
	"formflow/internal/form/store"
	jwttoken "formflow/internal/jwt_token"
	"formflow/internal/riskprofile"
	id "formflow/pkg/domain"
	domainerrors "formflow/pkg/domain-errors"
)

var flowMetrics = metrics.New()

type nopAuditor struct{}

func (nopAuditor) Emit(context.Context, audit.Event) {}

// TestProfileFlow walks the full review-gated lifecycle: answer all ten
// questions, submit into review, step back, re-answer, confirm, and check
// the single inserted row.
func TestProfileFlow(t *testing.T) {
	ctx := context.Background()

	registry := form.NewRegistry()
	require.NoError(t, registry.Register(riskprofile.Definition()))
	records := store.NewInMemoryRecordStore()
	svc := service.New(
		registry,
		records,
		store.NewInMemorySessionStore(),
		jwttoken.NewJWTService("test-signing-key", "formflow"),
		nopAuditor{},
		flowMetrics,
		slog.New(slog.DiscardHandler),
	)

	def := riskprofile.Definition()
	opened, err := svc.Open(ctx, riskprofile.FormType, models.OpenSessionRequest{})
	require.NoError(t, err)
	sessionID, err := id.ParseSessionID(opened.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.Progress{Current: 1, Total: 10}, opened.Progress)

	// Highest ability, lowest appetite.
	answerCurrent := func(position int) models.SessionResponse {
		t.Helper()
		state, err := svc.State(ctx, sessionID)
		require.NoError(t, err)
		q := def.QuestionByField(state.Question.Field)
		raw, err := json.Marshal(q.Options[position].Value)
		require.NoError(t, err)
		resp, err := svc.Next(ctx, sessionID, models.AnswerRequest{Value: raw})
		require.NoError(t, err)
		return resp
	}
	for i := 0; i < 5; i++ {
		answerCurrent(4)
	}
	for i := 0; i < 5; i++ {
		answerCurrent(0)
	}

	// No record exists before confirmation: insert-once defers every write.
	state, err := svc.State(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, state.RecordID)

	reviewed, err := svc.Submit(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, string(models.StateReviewing), reviewed.State)
	overall := reviewed.Summary["overall"].(map[string]any)
	assert.Equal(t, 25.0, overall["score"])
	assert.Equal(t, riskprofile.BandBalanced, overall["band"])

	// Submitting again from review is rejected; the gate wants confirm.
	_, err = svc.Submit(ctx, sessionID)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeInvalidState))

	// Back out of review to revisit an answer, then return and confirm.
	back, err := svc.Previous(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, string(models.StateAnswering), back.State)
	assert.Equal(t, "ra5", back.Question.Field)
	answerCurrent(4)

	reviewed, err = svc.Submit(ctx, sessionID)
	require.NoError(t, err)
	overall = reviewed.Summary["overall"].(map[string]any)
	assert.Equal(t, 30.0, overall["score"], "re-answered question moved the score")

	confirmed, err := svc.Confirm(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, string(models.StateSubmitted), confirmed.State)

	// Exactly one row, carrying weights, sums and bands.
	rows := records.Rows("risk_profiles")
	require.Len(t, rows, 1)
	for _, row := range rows {
		assert.Equal(t, 10.0, row["rt1"])
		assert.Equal(t, 10.0, row["ra5"])
		assert.Equal(t, 50.0, row["risk_taking_score"])
		assert.Equal(t, 10.0, row["risk_appetite_score"])
		assert.Equal(t, 30.0, row["overall_score"])
		assert.Equal(t, riskprofile.BandVeryAggressive, row["risk_taking_band"])
		assert.Equal(t, riskprofile.BandConservative, row["risk_appetite_band"])
		assert.Equal(t, riskprofile.BandAggressive, row["overall_band"])
	}
}
