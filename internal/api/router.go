package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/podcastai/internal/api/handlers"
	"github.com/nikhilbhutani/podcastai/internal/api/middleware"
	"github.com/nikhilbhutani/podcastai/internal/config"
	"github.com/nikhilbhutani/podcastai/internal/jobstore"
	"github.com/nikhilbhutani/podcastai/internal/metrics"
)

type Router struct {
	mux     *chi.Mux
	cfg     config.ServerConfig
	jobs    handlers.Submitter
	store   *jobstore.Store
	metrics *metrics.Metrics
	checks  map[string]handlers.Pinger
}

// NewRouter wires the HTTP surface. checks are the dependencies reported by
// /readyz; nil entries are ignored.
func NewRouter(cfg config.ServerConfig, jobs handlers.Submitter, store *jobstore.Store, m *metrics.Metrics, checks map[string]handlers.Pinger) *Router {
	return &Router{
		mux:     chi.NewRouter(),
		cfg:     cfg,
		jobs:    jobs,
		store:   store,
		metrics: m,
		checks:  checks,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(rt.metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.CORSOrigins))

	// Health and metrics endpoints (not rate limited)
	health := handlers.NewHealthHandler(rt.checks)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	if rt.metrics != nil {
		r.Handle("/metrics", rt.metrics.Handler())
	}

	podcastH := handlers.NewPodcastHandler(rt.jobs, rt.store)
	r.Route("/api", func(r chi.Router) {
		if rt.cfg.RateLimitRPS > 0 {
			rl := middleware.NewRateLimiter(rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
			r.Use(rl.Limit)
		}

		r.Post("/generate-podcast", podcastH.Generate)
		r.Get("/podcast-status/{id}", podcastH.Status)
		r.Get("/podcast-download/{id}", podcastH.Download)
		r.Get("/podcast-events/{id}", podcastH.Events)
	})

	return r
}
