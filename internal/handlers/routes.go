package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
)

// NewRouter builds the HTTP routes for the API, the event stream and the probes
func NewRouter(api *APIHandlers, health *Health) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check endpoints
	r.Get("/api/health", health.Health)
	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness)

	// SSE streams stay open past the request timeout
	r.Get("/api/events", api.EventsSSE)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/api/drafts", func(r chi.Router) {
			r.Get("/", api.ListDrafts)
			r.Post("/", api.CreateDraft)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", api.GetDraft)
				r.Delete("/", api.DeleteDraft)
				r.Post("/pick", api.Pick)
				r.Post("/taken", api.MarkTaken)
				r.Post("/block", api.Block)
				r.Get("/recommend", api.Recommend)
				r.Post("/autopick", api.AutoPick)
				r.Post("/advance", api.Advance)
			})
		})

		r.Get("/api/board", api.Board)
		r.Post("/api/rankings/validate", api.ValidateRankings)

		r.Post("/api/engine/needs", api.Needs)
		r.Post("/api/engine/score", api.ScorePick)

		r.Post("/api/simulations", api.Simulate)
		r.Get("/api/simulations/timing", api.Timing)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
