package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/membergate/membergate/internal/apperr"
	"github.com/membergate/membergate/internal/model"
	"github.com/membergate/membergate/internal/store"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeAppError converts err into the error envelope. Classified errors
// carry their own status and message; store sentinels map to 404/400; all
// other errors become a generic 500 (detail stays server-side, surfaced by
// the request logger).
func writeAppError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		writeError(w, ae.Kind.HTTPStatus(), ae.Message)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusBadRequest, "Already exists")
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryString extracts a string query parameter with a default.
func queryString(r *http.Request, key, defaultVal string) string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val
}
