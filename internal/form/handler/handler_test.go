package handler_test

import (
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"formflow/internal/form/handler"
	"formflow/internal/form/handler/mocks"
	"formflow/internal/form/models"
	id "formflow/pkg/domain"
	dErrors "formflow/pkg/domain-errors"
	"formflow/pkg/testutil"
)

// staticValidator accepts exactly one token for one session.
type staticValidator struct {
	token     string
	sessionID id.SessionID
}

func (v staticValidator) SessionIDFromToken(token string) (id.SessionID, error) {
	if token != v.token {
		return id.SessionID{}, errors.New("unknown token")
	}
	return v.sessionID, nil
}

type fixture struct {
	service  *mocks.MockService
	registry *mocks.MockRegistry
	router   chi.Router
}

func newFixture(t *testing.T, validator staticValidator) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	service := mocks.NewMockService(ctrl)
	registry := mocks.NewMockRegistry(ctrl)

	h := handler.New(service, registry, validator, nil, slog.New(slog.DiscardHandler))
	router := chi.NewRouter()
	h.Register(router)
	return fixture{service: service, registry: registry, router: router}
}

func TestOpenSession(t *testing.T) {
	t.Run("opens a fresh session", func(t *testing.T) {
		fx := newFixture(t, staticValidator{})
		sessionID := id.NewSessionID()

		fx.service.EXPECT().
			Open(gomock.Any(), id.FormType("onboarding"), models.OpenSessionRequest{}).
			Return(models.SessionResponse{
				SessionID: sessionID.String(),
				FormType:  "onboarding",
				State:     "answering",
				Token:     "session-token",
			}, nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/forms/onboarding/sessions", map[string]any{})
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		var resp models.SessionResponse
		testutil.DecodeJSON(t, rr, &resp)
		assert.Equal(t, sessionID.String(), resp.SessionID)
		assert.Equal(t, "session-token", resp.Token)
	})

	t.Run("resume request passes record id and token through", func(t *testing.T) {
		fx := newFixture(t, staticValidator{})

		fx.service.EXPECT().
			Open(gomock.Any(), id.FormType("onboarding"), models.OpenSessionRequest{
				RecordID:    "rec-1",
				ResumeToken: "plain-token",
			}).
			Return(models.SessionResponse{State: "answering"}, nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/forms/onboarding/sessions", map[string]any{
			"record_id":    "rec-1",
			"resume_token": "plain-token",
		})
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("unknown form type maps to 404", func(t *testing.T) {
		fx := newFixture(t, staticValidator{})

		fx.service.EXPECT().
			Open(gomock.Any(), id.FormType("missing"), gomock.Any()).
			Return(models.SessionResponse{}, dErrors.New(dErrors.CodeNotFound, "no form registered"))

		req := testutil.NewRequest(t, http.MethodPost, "/forms/missing/sessions")
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusNotFound, rr.Code)
		var body map[string]string
		testutil.DecodeJSON(t, rr, &body)
		assert.Equal(t, string(dErrors.CodeNotFound), body["code"])
	})

	t.Run("malformed body is rejected before the service", func(t *testing.T) {
		fx := newFixture(t, staticValidator{})

		req := testutil.NewRequestWithBody(t, http.MethodPost, "/forms/onboarding/sessions", "{not json")
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestListForms(t *testing.T) {
	fx := newFixture(t, staticValidator{})
	fx.registry.EXPECT().Types().Return([]id.FormType{"onboarding", "risk_profile"})

	req := testutil.NewRequest(t, http.MethodGet, "/forms")
	rr := testutil.DoRequest(fx.router, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string][]string
	testutil.DecodeJSON(t, rr, &body)
	assert.Equal(t, []string{"onboarding", "risk_profile"}, body["forms"])
}

func TestSessionAuth(t *testing.T) {
	sessionID := id.NewSessionID()
	validator := staticValidator{token: "good-token", sessionID: sessionID}

	t.Run("missing bearer token is rejected", func(t *testing.T) {
		fx := newFixture(t, validator)

		req := testutil.NewRequest(t, http.MethodGet, "/sessions/"+sessionID.String())
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown token is rejected", func(t *testing.T) {
		fx := newFixture(t, validator)

		req := testutil.NewRequest(t, http.MethodGet, "/sessions/"+sessionID.String())
		req.Header.Set("Authorization", "Bearer forged")
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("token for another session is rejected", func(t *testing.T) {
		fx := newFixture(t, validator)
		other := id.NewSessionID()

		req := testutil.NewRequest(t, http.MethodGet, "/sessions/"+other.String())
		req.Header.Set("Authorization", "Bearer good-token")
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token reaches the service", func(t *testing.T) {
		fx := newFixture(t, validator)

		fx.service.EXPECT().
			State(gomock.Any(), sessionID).
			Return(models.SessionResponse{SessionID: sessionID.String(), State: "answering"}, nil)

		req := testutil.NewRequest(t, http.MethodGet, "/sessions/"+sessionID.String())
		req.Header.Set("Authorization", "Bearer good-token")
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestTransitions(t *testing.T) {
	sessionID := id.NewSessionID()
	validator := staticValidator{token: "good-token", sessionID: sessionID}

	authed := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer good-token")
		return req
	}

	t.Run("next commits the answer", func(t *testing.T) {
		fx := newFixture(t, validator)

		fx.service.EXPECT().
			Next(gomock.Any(), sessionID, gomock.Any()).
			Return(models.SessionResponse{State: "answering", Progress: models.Progress{Current: 2, Total: 3}}, nil)

		req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/sessions/"+sessionID.String()+"/next", map[string]any{"value": "yes"}))
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp models.SessionResponse
		testutil.DecodeJSON(t, rr, &resp)
		assert.Equal(t, 2, resp.Progress.Current)
	})

	t.Run("validation failure returns the view with inline errors", func(t *testing.T) {
		fx := newFixture(t, validator)

		fx.service.EXPECT().
			Next(gomock.Any(), sessionID, gomock.Any()).
			Return(models.SessionResponse{
				State:  "answering",
				Errors: map[string]string{"full_name": "must be at least 2 characters"},
			}, dErrors.New(dErrors.CodeValidation, "answer failed validation"))

		req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/sessions/"+sessionID.String()+"/next", map[string]any{"value": "x"}))
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		var resp models.SessionResponse
		testutil.DecodeJSON(t, rr, &resp)
		assert.Equal(t, "answering", resp.State)
		assert.Equal(t, "must be at least 2 characters", resp.Errors["full_name"])
	})

	t.Run("next with a malformed body never reaches the service", func(t *testing.T) {
		fx := newFixture(t, validator)

		req := authed(testutil.NewRequestWithBody(t, http.MethodPost, "/sessions/"+sessionID.String()+"/next", "{"))
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("previous at the first question maps to conflict", func(t *testing.T) {
		fx := newFixture(t, validator)

		fx.service.EXPECT().
			Previous(gomock.Any(), sessionID).
			Return(models.SessionResponse{}, dErrors.New(dErrors.CodeInvalidState, "already at the first question"))

		req := authed(testutil.NewRequest(t, http.MethodPost, "/sessions/"+sessionID.String()+"/previous"))
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("submit entering review returns the summary", func(t *testing.T) {
		fx := newFixture(t, validator)

		fx.service.EXPECT().
			Submit(gomock.Any(), sessionID).
			Return(models.SessionResponse{
				State:   "reviewing",
				Summary: map[string]any{"overall": map[string]any{"score": 25.0, "band": "Balanced"}},
			}, nil)

		req := authed(testutil.NewRequest(t, http.MethodPost, "/sessions/"+sessionID.String()+"/submit"))
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp models.SessionResponse
		testutil.DecodeJSON(t, rr, &resp)
		assert.Equal(t, "reviewing", resp.State)
		assert.Contains(t, resp.Summary, "overall")
	})

	t.Run("persistence failure maps to bad gateway", func(t *testing.T) {
		fx := newFixture(t, validator)

		fx.service.EXPECT().
			Submit(gomock.Any(), sessionID).
			Return(models.SessionResponse{}, dErrors.Wrap(dErrors.CodePersistence, "terminal write failed", errors.New("connection reset")))

		req := authed(testutil.NewRequest(t, http.MethodPost, "/sessions/"+sessionID.String()+"/submit"))
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusBadGateway, rr.Code)
		var body map[string]string
		testutil.DecodeJSON(t, rr, &body)
		assert.NotContains(t, body["error"], "connection reset")
	})

	t.Run("confirm finalizes a reviewing session", func(t *testing.T) {
		fx := newFixture(t, validator)

		fx.service.EXPECT().
			Confirm(gomock.Any(), sessionID).
			Return(models.SessionResponse{State: "submitted", RecordID: "rec-1"}, nil)

		req := authed(testutil.NewRequest(t, http.MethodPost, "/sessions/"+sessionID.String()+"/confirm"))
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp models.SessionResponse
		testutil.DecodeJSON(t, rr, &resp)
		assert.Equal(t, "submitted", resp.State)
		assert.Equal(t, "rec-1", resp.RecordID)
	})

	t.Run("cancel a terminal session maps to conflict", func(t *testing.T) {
		fx := newFixture(t, validator)

		fx.service.EXPECT().
			Cancel(gomock.Any(), sessionID).
			Return(models.SessionResponse{}, dErrors.New(dErrors.CodeInvalidState, "session already finished"))

		req := authed(testutil.NewRequest(t, http.MethodPost, "/sessions/"+sessionID.String()+"/cancel"))
		rr := testutil.DoRequest(fx.router, req)

		require.Equal(t, http.StatusConflict, rr.Code)
	})
}
