// Package helpers holds the JSON response writers shared by the controllers.
package helpers

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"vibin_matchcore/logging"
	"vibin_matchcore/services"
	"vibin_matchcore/validation"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

// WriteJSONResponse writes data as JSON with the given status.
func WriteJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch services.Kind(err) {
	case services.ErrNotFound:
		return http.StatusNotFound
	case services.ErrForbidden:
		return http.StatusForbidden
	case services.ErrConflict:
		return http.StatusConflict
	case services.ErrInvalidInput:
		return http.StatusBadRequest
	case services.ErrExpired:
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

// WriteErrorResponse writes err with its mapped status. Internal failures
// are logged and reported without detail.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	body := ErrorResponse{Error: err.Error()}

	var verr *validation.Error
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		body.Error = http.StatusText(status)
	}
	WriteJSONResponse(w, status, body)
}
