package controllers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"vibin_matchcore/helpers"
	"vibin_matchcore/validation"
)

// UserHandleHeader identifies the caller. Authentication happens upstream.
const UserHandleHeader = "X-User-Handle"

const maxBodyBytes = 1 << 20

// HealthCheckHandler provides a basic health check
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// WelcomeHandler provides a welcome message
func WelcomeHandler(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Welcome to Vibin"})
}

// callerID returns the caller's handle, or writes 401 and returns false.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := strings.TrimSpace(r.Header.Get(UserHandleHeader))
	if user == "" {
		helpers.WriteJSONResponse(w, http.StatusUnauthorized, helpers.ErrorResponse{Error: UserHandleHeader + " header is required"})
		return "", false
	}
	return user, true
}

// decodeBody reads, decodes and validates a JSON body into dst. On failure
// the error response is already written.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return false
	}
	if err := validation.DecodeAndValidate(body, dst); err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badQuery(w, r, name, "a non-negative integer")
		return 0, false
	}
	return n, true
}

func queryBool(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		badQuery(w, r, name, "true or false")
		return false, false
	}
	return b, true
}

func badQuery(w http.ResponseWriter, r *http.Request, name, want string) {
	helpers.WriteErrorResponse(w, r, &validation.Error{Fields: []validation.FieldError{{
		Field:   name,
		Tag:     "query",
		Message: name + " must be " + want,
	}}})
}
