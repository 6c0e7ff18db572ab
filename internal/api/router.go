package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/motia-studio/engine/internal/api/handlers"
	mw "github.com/motia-studio/engine/internal/api/middleware"
)

type Dependencies struct {
	HMACSecret     []byte
	DefaultUserID  string
	RateLimitRPS   float64
	RateLimitBurst int

	Stats              handlers.StatsSource
	ProjectsHandler    *handlers.ProjectsHandler
	DeploymentsHandler *handlers.DeploymentsHandler
	TemplatesHandler   *handlers.TemplatesHandler
}

func NewRouter(dep Dependencies) http.Handler {
	if dep.RateLimitRPS <= 0 {
		dep.RateLimitRPS = 10
	}
	if dep.RateLimitBurst <= 0 {
		dep.RateLimitBurst = 20
	}

	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := handlers.NewHealthHandler(dep.Stats)
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(mw.RateLimit(dep.RateLimitRPS, dep.RateLimitBurst))
		api.Use(mw.Auth(dep.HMACSecret, dep.DefaultUserID))

		api.Post("/generate", dep.ProjectsHandler.Generate)

		// Projects
		api.Route("/projects", func(pr chi.Router) {
			pr.Get("/", dep.ProjectsHandler.List)
			pr.Get("/{id}", dep.ProjectsHandler.Get)
			pr.Patch("/{id}", dep.ProjectsHandler.Update)
			pr.Delete("/{id}", dep.ProjectsHandler.Delete)
			pr.Post("/{id}/deploy", dep.DeploymentsHandler.Create)
			pr.Get("/{id}/deployments", dep.DeploymentsHandler.ListByProject)
		})

		// Deployments
		api.Get("/deployments/{id}", dep.DeploymentsHandler.Get)

		// Templates
		api.Route("/templates", func(tr chi.Router) {
			tr.Get("/", dep.TemplatesHandler.List)
			tr.Get("/{id}", dep.TemplatesHandler.Get)
			tr.Post("/{id}/instantiate", dep.TemplatesHandler.Instantiate)
		})
	})

	return r
}
