package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API carries a "message". Validation errors
// add the full list of violated rules, duplicate-key errors name the field:
//
//	{"message": "Validation Error", "errors": ["Name is required"]}
//	{"message": "Email already registered", "field": "email"}
//	{"message": "Event not found"}
//
// The frontend only ever has to look at "message" to show something useful.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/alumni-network/internal/apperror"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 10 << 20

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Field   string   `json:"field,omitempty"`
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body is written. Once Encode
// writes the first byte, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation, ErrDuplicate, ErrAlreadyRegistered → 400
//	ErrUnauthorized                                   → 401
//	ErrForbidden                                      → 403
//	ErrNotFound                                       → 404
//	anything else                                     → 500
//
// errors.Is walks the whole chain, so a service may wrap an AppError with
// fmt.Errorf("...: %w", err) and the mapping still finds it.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Never expose internal error text: it may hold queries or paths.
		slog.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
		return
	}

	body := ErrorResponse{Message: appErr.Message}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		body.Errors = appErr.Details
	case errors.Is(err, apperror.ErrDuplicate):
		status = http.StatusBadRequest
		body.Field = appErr.Field
	case errors.Is(err, apperror.ErrAlreadyRegistered):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	}

	writeJSON(w, status, body)
}

// decodeJSON reads a JSON body into dst. A malformed body is the client's
// fault, so it comes back as a validation error. Field types with their
// own UnmarshalJSON (eventDate, flexInt) report an *apperror.AppError
// naming the field, which is passed through unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", "Request body too large")
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.ValidationFailed("body", "Invalid request body")
	}
	return nil
}

// flexInt is an integer that may also arrive as a numeric string, which is
// what HTML <select> values look like once a browser form is serialised.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return apperror.ValidationFailed("batchYear", "Batch year must be a number")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return apperror.ValidationFailed("batchYear", "Batch year must be a number")
	}
	*n = flexInt(v)
	return nil
}
