package api

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/insight-engine/pkg/logging"
	"github.com/Sternrassler/insight-engine/pkg/metrics"
)

// slowRequest marks access log lines at warn level.
const slowRequest = 5 * time.Second

// NewRouter mounts the analyze endpoint, health checks and /metrics behind
// request ids, panic recovery, access logging and permissive CORS.
func NewRouter(h *Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(logging.AccessLog(logger, slowRequest))
	r.Use(recoverer(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", SessionHeader, chimw.RequestIDHeader},
		ExposedHeaders: []string{"Retry-After", chimw.RequestIDHeader},
		MaxAge:         300,
	}))

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": errMethod})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", h.Analyze)
		r.Options("/analyze", preflight)
		r.Get("/health", health)
		r.Get("/ready", h.Ready)
	})
	r.Get("/health", health)
	r.Get("/ready", h.Ready)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// preflight answers OPTIONS requests that carry no CORS preflight headers.
func preflight(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, "+SessionHeader)
	w.WriteHeader(http.StatusOK)
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// recoverer turns a handler panic into a JSON 500.
func recoverer(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error().
					Str("request_id", chimw.GetReqID(r.Context())).
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("Handler panicked")

				writeInternal(w, "unexpected error while processing the request")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
