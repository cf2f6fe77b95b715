package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/editor"
	"github.com/pkordes/travel-journal/internal/handler/gen"
	"github.com/pkordes/travel-journal/internal/shell"
)

// notFoundBody returns an ErrorResponse for a missing resource.
// The caller supplies the message (e.g. "record not found") because the
// handler knows what was being looked up.
func notFoundBody(message string) gen.ErrorResponse {
	return errorBody("not_found", message)
}

// validationBody returns an ErrorResponse for a wrapped domain.ErrValidation.
func validationBody(err error) gen.ErrorResponse {
	return errorBody("validation_error", unwrapMessage(err))
}

// invalidBody returns an ErrorResponse for input the handler rejects as
// invalid before it reaches the shell.
func invalidBody(message string) gen.ErrorResponse {
	return errorBody("validation_error", message)
}

// requestBody returns an ErrorResponse for a request that could not be
// understood at all (unknown query value, malformed body).
func requestBody(message string) gen.ErrorResponse {
	return errorBody("bad_request", message)
}

func conflictBody(message string) gen.ErrorResponse {
	return errorBody("conflict", message)
}

func errorBody(code, message string) gen.ErrorResponse {
	return gen.ErrorResponse{Error: gen.ErrorDetail{Code: code, Message: message}}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody(code, message))
}

// badRequest writes a 400 for input rejected before reaching the shell.
func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, requestBody(message))
}

// writeServiceError maps a sentinel error from a UI event to its status and
// envelope.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, notFoundBody(what+" not found"))
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, conflictBody(what+" already exists"))
	case errors.Is(err, shell.ErrMapNotReady):
		writeError(w, http.StatusServiceUnavailable, "map_not_ready", "the map is not ready")
	default:
		s.internalError(w, r, err)
	}
}

// internalError logs err and writes a 500. It is also the generated strict
// handler's response error hook.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// requestError is the generated strict handler's request error hook. It
// receives body decode failures.
func requestError(w http.ResponseWriter, _ *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
	case errors.Is(err, io.EOF):
		badRequest(w, "request body is required")
	default:
		badRequest(w, "request body must be a JSON record")
	}
}

// paramError is the generated router's hook for parameters that fail to bind.
func paramError(w http.ResponseWriter, _ *http.Request, err error) {
	badRequest(w, err.Error())
}

// unwrapMessage extracts the human-readable part from a wrapped validation
// error, e.g. "shell.Shell.CreateRecord: validation error: Please fill in all
// fields" → "Please fill in all fields".
func unwrapMessage(err error) string {
	return editor.Message(err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the client is gone if this fails
	json.NewEncoder(w).Encode(v)
}
