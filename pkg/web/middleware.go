package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ritzau/meshchurn/pkg/logging"
)

const requestIDHeader = "X-Request-ID"

// withRequestLog tags every request with an ID, echoed in the response
// header, and logs it on the web logger once it completes. Subscriptions
// are also logged when they open, since they last as long as the client
// stays connected.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		r = r.WithContext(logging.WithRequestID(r.Context(), id))
		w.Header().Set(requestIDHeader, id)

		log := logger.With("requestID", id, "method", r.Method, "path", r.URL.Path)
		var match mux.RouteMatch
		if s.router.Match(r, &match) && match.Route != nil {
			if tmpl, err := match.Route.GetPathTemplate(); err == nil {
				log = log.With("route", tmpl)
			}
			if topic, ok := match.Vars["topic"]; ok {
				log = log.With("topic", topic)
				log.Info("Subscription opened", "remoteAddr", r.RemoteAddr)
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		attrs := []any{"status", rec.status, "bytes", rec.bytes, "durationMs", time.Since(start).Milliseconds()}
		switch {
		case rec.status >= 500:
			log.Error("Request failed", attrs...)
		case rec.status >= 400:
			log.Warn("Request rejected", attrs...)
		default:
			log.Debug("Request served", attrs...)
		}
	})
}

// statusRecorder remembers the status and size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(p []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(p)
	rw.bytes += n
	return n, err
}

// Flush keeps SSE streaming through the recorder.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
