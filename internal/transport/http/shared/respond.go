// Package shared holds the response helpers every handler uses, keeping
// error translation to HTTP in one place.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "formflow/pkg/domain-errors"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error to its HTTP status and uniform body.
// Non-domain errors become opaque 500s so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal error",
			Code:  string(dErrors.CodeInternal),
		})
		return
	}
	WriteJSON(w, dErrors.ToHTTPStatus(domainErr.Code), ErrorResponse{
		Error: domainErr.Message,
		Code:  string(domainErr.Code),
	})
}
