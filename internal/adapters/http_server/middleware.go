package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"doctor_reputation/internal/adapters/observability"
)

const timeoutBody = `{"success":false,"errorKind":"Internal","message":"request timed out"}`

// Timeout cancels the request context after d and answers 503 with the failure envelope.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return http.TimeoutHandler(next, d, timeoutBody) }
}

// ---- status-recording ResponseWriter ----

type srw struct {
	http.ResponseWriter
	status int
	wrote  bool
	bytes  int
}

func (w *srw) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *srw) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *srw) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// routeOf prefers the matched chi pattern so labels stay bounded.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// ---- Metrics middleware ----

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &srw{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		observability.ObserveHTTP(routeOf(r), r.Method, sw.Status(), time.Since(start))
	})
}

// ---- Access log ----

// Logger writes one line per API call. Lookups carry their source and identifier so a slow or failing
// report can be traced back to the upstream it hit. RemoteAddr is already resolved by chi's RealIP.
func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &srw{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			ev := l.Info()
			switch {
			case sw.Status() == http.StatusBadGateway, sw.Status() == http.StatusServiceUnavailable:
				ev = l.Warn()
			case sw.Status() >= http.StatusInternalServerError:
				ev = l.Error()
			}
			q := r.URL.Query()
			ev = ev.
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("route", routeOf(r)).
				Int("status", sw.Status()).
				Int("bytes", sw.bytes).
				Int64("took_ms", time.Since(start).Milliseconds()).
				Str("client", r.RemoteAddr)
			if src := q.Get("source"); src != "" {
				ev = ev.Str("source", src)
			}
			if id := q.Get("identifier"); id != "" {
				ev = ev.Str("identifier", id)
			}
			ev.Msg("api call")
		})
	}
}
