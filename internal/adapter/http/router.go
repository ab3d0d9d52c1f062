package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/financeager/internal/adapter/http/handler"
	"github.com/iho/financeager/internal/adapter/http/middleware"
	"github.com/iho/financeager/internal/infrastructure/metrics"
	"github.com/iho/financeager/internal/usecase"
)

// RouterConfig holds dependencies for the router. Optional dependencies
// left nil disable their middleware or endpoint.
type RouterConfig struct {
	EntryHandler     *handler.EntryHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.Logger).Wrap)
		}

		r.Route("/periods", func(r chi.Router) {
			r.Get("/", cfg.EntryHandler.ListPeriods)
			r.Get("/{period}", cfg.EntryHandler.List)
			r.Post("/{period}", cfg.EntryHandler.Add)
			r.Get("/{period}/{eid}", cfg.EntryHandler.Get)
			r.Patch("/{period}/{eid}", cfg.EntryHandler.Update)
			r.Delete("/{period}/{eid}", cfg.EntryHandler.Remove)
		})
	})

	return r
}
