package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Sunzheini/AegisAI-sub000/internal/ingress"
	"github.com/Sunzheini/AegisAI-sub000/internal/statestore"
	"github.com/Sunzheini/AegisAI-sub000/internal/wshub"
)

// RouterConfig holds all dependencies needed to build the HTTP router.
type RouterConfig struct {
	Submitter *ingress.Submitter
	Store     *statestore.Store
	Hub       *wshub.Hub
	Logger    *zap.Logger
}

// NewRouter builds the fully configured Chi router for the orchestrator
// binary: job submission/lookup/stream, health and metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	jobHandler := NewJobHandler(cfg.Submitter, cfg.Store, cfg.Hub, cfg.Logger)

	r.Post("/jobs", jobHandler.Submit)
	r.Get("/jobs/{job_id}", jobHandler.GetByID)
	r.Get("/jobs/{job_id}/stream", jobHandler.Stream)

	r.Get("/health", Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
