package relay

import (
	"net/http"
	"time"

	"github.com/weavebench/fanout/v1/observability"
)

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps h with trace extraction, request logging and an observer
// notification carrying the route and status code.
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if s.propagator != nil {
			r = r.WithContext(s.propagator.ExtractHeaders(r.Context(), r.Header))
		}

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		elapsed := time.Since(start)

		if s.logger != nil {
			s.logger.InfoWithContext(r.Context(), "request handled", nil, map[string]interface{}{
				"route":       route,
				"method":      r.Method,
				"code":        rec.code,
				"duration_ms": elapsed.Milliseconds(),
			})
		}
		if s.observer != nil {
			var err error
			if rec.code >= http.StatusInternalServerError {
				err = errServerError(rec.code)
			}
			s.observer.ObserveOperation(observability.OperationContext{
				Component: "relay",
				Operation: "request",
				Resource:  route,
				Duration:  elapsed,
				Error:     err,
				Metadata:  map[string]interface{}{"code": rec.code},
			})
		}
	})
}

type errServerError int

func (e errServerError) Error() string {
	return "relay: " + http.StatusText(int(e))
}
