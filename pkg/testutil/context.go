package testutil

import (
	"net/http"
	"time"

	id "formflow/pkg/domain"
	"formflow/pkg/requestcontext"
)

// WithSessionID adds a session ID to the request context, simulating what the
// session middleware does for authenticated requests. Invalid IDs are ignored.
func WithSessionID(req *http.Request, sessionID string) *http.Request {
	parsed, err := id.ParseSessionID(sessionID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithSessionID(req.Context(), parsed))
}

// WithRequestTime pins the request clock, as the RequestTime middleware does.
func WithRequestTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
