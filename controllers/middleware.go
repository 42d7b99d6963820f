package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"vibin_matchcore/logging"
)

// CorrelationHeader carries the request correlation ID in both directions.
const CorrelationHeader = "X-Correlation-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestContext tags each request with a correlation ID and the caller,
// bounds it by timeout and logs its outcome.
func RequestContext(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(CorrelationHeader)
			if id == "" {
				id = logging.GenerateCorrelationID()
			}
			ctx := logging.ContextWithCorrelationID(r.Context(), id)
			if user := r.Header.Get(UserHandleHeader); user != "" {
				ctx = logging.ContextWithUserID(ctx, user)
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			w.Header().Set(CorrelationHeader, id)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			event := logging.Ctx(ctx).Info()
			if rec.status >= http.StatusInternalServerError {
				event = logging.Ctx(ctx).Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("request handled")
		})
	}
}
