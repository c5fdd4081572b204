package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/goaccount/internal/adapter/http/handler"
	"github.com/iho/goaccount/internal/adapter/http/middleware"
	"github.com/iho/goaccount/internal/infrastructure/auth"
	"github.com/iho/goaccount/internal/infrastructure/metrics"
	"github.com/iho/goaccount/internal/usecase"
)

// RouterConfig holds dependencies for the router.
// Optional fields (metrics, rate limiter, idempotency store, verifier)
// disable their middleware when nil.
type RouterConfig struct {
	AccountHandler   *handler.AccountHandler
	HealthHandler    *handler.HealthHandler
	Logger           zerolog.Logger
	Metrics          *metrics.Metrics
	Gatherer         prometheus.Gatherer
	RateLimiter      *middleware.RateLimiter
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	TokenVerifier    middleware.TokenVerifier
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
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
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TokenVerifier != nil {
			var failures *prometheus.CounterVec
			if cfg.Metrics != nil {
				failures = cfg.Metrics.AuthFailures
			}
			r.Use(middleware.AuthMiddleware(cfg.TokenVerifier, failures))
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotencyMiddleware.Wrap)
		}

		read := scope(cfg.TokenVerifier != nil, auth.ScopeRead)
		write := scope(cfg.TokenVerifier != nil, auth.ScopeWrite)

		r.Route("/accounts", func(r chi.Router) {
			r.With(write).Post("/", cfg.AccountHandler.Open)
			r.With(read).Get("/", cfg.AccountHandler.List)
			r.With(read).Get("/{id}", cfg.AccountHandler.Get)
			r.With(read).Get("/{id}/balance", cfg.AccountHandler.Balance)
			r.With(read).Get("/{id}/debits", cfg.AccountHandler.Debits)
			r.With(write).Post("/{id}/credit", cfg.AccountHandler.Credit)
			r.With(write).Post("/{id}/debit", cfg.AccountHandler.Debit)
		})
	})

	return r
}

func scope(enabled bool, name string) func(http.Handler) http.Handler {
	if !enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RequireScope(name)
}
