package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/journal/journal/internal/idgen"
	"github.com/journal/journal/internal/models"
	"github.com/journal/journal/internal/services"
)

const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err and writes it. Generator back-pressure errors carry a
// Retry-After hint since the next millisecond will usually succeed.
func writeError(w http.ResponseWriter, err error) {
	status, resp := mapErrorToResponse(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, resp)
}

// NotConfigured answers 503 for a route whose backing service is disabled.
func NotConfigured(w http.ResponseWriter, service string) {
	writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
		Error: service + " service not configured",
		Code:  "SERVICE_UNAVAILABLE",
	})
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return false
	}
	return true
}

// parseID parses a path identifier in decimal or Base62 form.
func parseID(w http.ResponseWriter, raw string) (idgen.ID, bool) {
	id, err := idgen.Parse(raw)
	if err != nil {
		writeError(w, err)
		return 0, false
	}
	return id, true
}

// mapErrorToResponse maps service errors to HTTP status codes and error responses.
func mapErrorToResponse(err error) (int, ErrorResponse) {
	badRequest := func(code string) (int, ErrorResponse) {
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: code}
	}

	switch {
	case errors.Is(err, idgen.ErrClockMovedBackwards):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error: "clock moved backwards, try again later",
			Code:  "CLOCK_MOVED_BACKWARDS",
		}
	case errors.Is(err, idgen.ErrSequenceExhausted):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error: "too many identifiers requested, try again",
			Code:  "SEQUENCE_EXHAUSTED",
		}
	case errors.Is(err, idgen.ErrEmptyString),
		errors.Is(err, idgen.ErrInvalidCharacter),
		errors.Is(err, idgen.ErrOverflow):
		return badRequest("INVALID_ID")
	case errors.Is(err, services.ErrInvalidCount):
		return badRequest("INVALID_COUNT")
	case errors.Is(err, models.ErrEmptyUsername),
		errors.Is(err, models.ErrUsernameLength),
		errors.Is(err, models.ErrInvalidUsername):
		return badRequest("INVALID_USERNAME")
	case errors.Is(err, models.ErrDisplayNameLen):
		return badRequest("INVALID_DISPLAY_NAME")
	case errors.Is(err, models.ErrInvalidTimezone):
		return badRequest("INVALID_TIMEZONE")
	case errors.Is(err, models.ErrTitleTooLong):
		return badRequest("INVALID_TITLE")
	case errors.Is(err, models.ErrTooManyTags), errors.Is(err, models.ErrInvalidTag):
		return badRequest("INVALID_TAGS")
	case errors.Is(err, models.ErrEmptyEntryUpdate):
		return badRequest("EMPTY_UPDATE")
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "USER_NOT_FOUND"}
	case errors.Is(err, models.ErrEntryNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "ENTRY_NOT_FOUND"}
	case errors.Is(err, models.ErrUsernameTaken):
		return http.StatusConflict, ErrorResponse{Error: models.ErrUsernameTaken.Error(), Code: "USERNAME_TAKEN"}
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "FORBIDDEN"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: "request timed out", Code: "TIMEOUT"}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		}
	}
}
