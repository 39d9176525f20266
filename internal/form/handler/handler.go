// Package handler is the thin HTTP layer over the session service. Handlers
// decode, delegate, and translate; no engine rules live here.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"formflow/internal/form/models"
	"formflow/internal/platform/middleware"
	"formflow/internal/platform/ratelimit"
	"formflow/internal/transport/http/shared"
	id "formflow/pkg/domain"
	dErrors "formflow/pkg/domain-errors"
	"formflow/pkg/requestcontext"
)

// Service is the session service surface the handlers depend on.
//
//go:generate mockgen -source=handler.go -destination=mocks/service_mocks.go -package=mocks Service
type Service interface {
	Open(ctx context.Context, formType id.FormType, req models.OpenSessionRequest) (models.SessionResponse, error)
	State(ctx context.Context, sessionID id.SessionID) (models.SessionResponse, error)
	Next(ctx context.Context, sessionID id.SessionID, req models.AnswerRequest) (models.SessionResponse, error)
	Previous(ctx context.Context, sessionID id.SessionID) (models.SessionResponse, error)
	Submit(ctx context.Context, sessionID id.SessionID) (models.SessionResponse, error)
	Confirm(ctx context.Context, sessionID id.SessionID) (models.SessionResponse, error)
	Cancel(ctx context.Context, sessionID id.SessionID) (models.SessionResponse, error)
}

// Registry lists the form types available for discovery.
type Registry interface {
	Types() []id.FormType
}

type Handler struct {
	service   Service
	registry  Registry
	validator middleware.TokenValidator
	openLimit *ratelimit.Limiter
	logger    *slog.Logger
}

func New(service Service, registry Registry, validator middleware.TokenValidator, openLimit *ratelimit.Limiter, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		registry:  registry,
		validator: validator,
		openLimit: openLimit,
		logger:    logger,
	}
}

// Register mounts the form engine routes. Opening a session is public but
// throttled per client; every session route requires the token issued at
// open.
func (h *Handler) Register(r chi.Router) {
	r.Get("/forms", h.handleListForms)
	r.With(ratelimit.Middleware(h.openLimit)).Post("/forms/{formType}/sessions", h.handleOpen)

	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Use(middleware.RequireSession(h.validator, h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/", h.handleState)
		r.Post("/next", h.handleNext)
		r.Post("/previous", h.handlePrevious)
		r.Post("/submit", h.handleSubmit)
		r.Post("/confirm", h.handleConfirm)
		r.Post("/cancel", h.handleCancel)
	})
}

func (h *Handler) handleListForms(w http.ResponseWriter, r *http.Request) {
	types := h.registry.Types()
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.String())
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]string{"forms": out})
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	formType, err := id.ParseFormType(chi.URLParam(r, "formType"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid form type"))
		return
	}

	var req models.OpenSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
			return
		}
	}

	resp, err := h.service.Open(ctx, formType, req)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to open session",
			"form_type", formType,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, resp)
}

// sessionID returns the path session id after checking it matches the one
// the token was issued for. A valid token for one session grants nothing on
// another.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (id.SessionID, bool) {
	ctx := r.Context()
	pathID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid session id"))
		return id.SessionID{}, false
	}
	if tokenID := requestcontext.SessionID(ctx); tokenID != pathID {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token does not match session"))
		return id.SessionID{}, false
	}
	return pathID, true
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.State(r.Context(), sessionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	resp, err := h.service.Next(ctx, sessionID, req)
	h.writeTransition(w, r, resp, err)
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Previous(r.Context(), sessionID)
	h.writeTransition(w, r, resp, err)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Submit(r.Context(), sessionID)
	h.writeTransition(w, r, resp, err)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Confirm(r.Context(), sessionID)
	h.writeTransition(w, r, resp, err)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Cancel(r.Context(), sessionID)
	h.writeTransition(w, r, resp, err)
}

// writeTransition handles the transition responses' one special case:
// validation failures carry the current view with inline field errors, so
// the body is the session response even though the status is the error's.
func (h *Handler) writeTransition(w http.ResponseWriter, r *http.Request, resp models.SessionResponse, err error) {
	if err == nil {
		shared.WriteJSON(w, http.StatusOK, resp)
		return
	}
	ctx := r.Context()
	if dErrors.Is(err, dErrors.CodeValidation) && len(resp.Errors) > 0 {
		shared.WriteJSON(w, dErrors.ToHTTPStatus(dErrors.CodeValidation), resp)
		return
	}
	h.logger.WarnContext(ctx, "transition failed",
		"session_id", chi.URLParam(r, "sessionID"),
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
	shared.WriteError(w, err)
}
