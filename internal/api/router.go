package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wsilva/contrail/internal/storage/sqlite"
	"github.com/wsilva/contrail/pkg/logger"
)

// Router builds the HTTP routes for the results API
type Router struct {
	handler *Handler
}

// NewRouter creates a new API router
func NewRouter(store *sqlite.Store, log *logger.Logger) *Router {
	return &Router{handler: NewHandler(store, log)}
}

// Routes returns the chi router with all API routes registered
func (r *Router) Routes() chi.Router {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)

	mux.Route("/api/v1", func(api chi.Router) {
		api.Get("/health", r.handler.GetHealth)
		api.Get("/summaries", r.handler.GetSummaries)
		api.Get("/summaries/{flight_id}", r.handler.GetSummary)
		api.Get("/callsigns", r.handler.GetCallsigns)
		api.Get("/stats", r.handler.GetStats)
	})

	return mux
}
