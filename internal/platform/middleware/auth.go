package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "formflow/pkg/domain"
	dErrors "formflow/pkg/domain-errors"
	"formflow/pkg/requestcontext"
)

// TokenValidator validates a bearer session token and returns the session id
// it is bound to. Implemented by internal/jwt_token.
type TokenValidator interface {
	SessionIDFromToken(token string) (id.SessionID, error)
}

// RequireSession enforces a valid session token on session-scoped routes and
// injects the session id into the request context. Handlers still verify that
// the path's session id matches the token's.
func RequireSession(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeAuthError(w, "missing bearer token")
				return
			}
			sessionID, err := validator.SessionIDFromToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "session token rejected",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err.Error(),
				)
				writeAuthError(w, "invalid session token")
				return
			}
			ctx := requestcontext.WithSessionID(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(dErrors.CodeUnauthorized))
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"` + string(dErrors.CodeUnauthorized) + `"}`))
}
