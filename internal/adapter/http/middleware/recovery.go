package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a 500 carrying the request ID, so a
// failed posting can be traced to its log line. Panics are counted per route
// when panics is non-nil. http.ErrAbortHandler is re-raised untouched.
func Recovery(panics *prometheus.CounterVec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				path := routePattern(r)
				if panics != nil {
					panics.WithLabelValues(path).Inc()
				}
				reqID := chimiddleware.GetReqID(r.Context())
				zerolog.Ctx(r.Context()).Error().
					Str("panic", fmt.Sprint(v)).
					Str("stack", string(debug.Stack())).
					Str("method", r.Method).
					Str("route", path).
					Str("request_id", reqID).
					Msg("panic recovered")

				// The handler already started a response; nothing sane can follow it.
				if rec.statusCode != 0 {
					return
				}
				w.Header().Set("X-Request-Id", reqID)
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
