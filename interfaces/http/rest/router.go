package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/services"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/observability"
	"github.com/Shani815/vctalenthub-sub000/interfaces/http/rest/handlers"
	"github.com/Shani815/vctalenthub-sub000/interfaces/http/rest/middleware"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// CORSConfig configures cross-origin access
type CORSConfig struct {
	Enabled bool
	Origins []string
}

// Dependencies is everything the router wires into handlers.
// Metrics, Gatherer and Tracing are optional.
type Dependencies struct {
	Connections *services.ConnectionService
	Intros      *services.IntroService
	Quota       *services.QuotaService
	Store       Pinger
	Auth        *middleware.Authenticator
	Errors      *pkgerrors.ErrorHandler
	Metrics     *observability.Recorder
	Gatherer    prometheus.Gatherer
	Tracing     *observability.Tracing
	CORS        CORSConfig
	Logger      *zap.Logger
}

// Router creates and configures the HTTP router
type Router struct {
	deps Dependencies
}

// NewRouter creates a new router instance
func NewRouter(deps Dependencies) *Router {
	return &Router{deps: deps}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.deps.Logger))
	router.Use(rt.deps.Errors.Middleware)
	if rt.deps.Tracing != nil {
		router.Use(rt.deps.Tracing.HTTPMiddleware)
	}
	if rt.deps.Metrics != nil {
		router.Use(rt.deps.Metrics.Middleware)
	}

	if rt.deps.CORS.Enabled {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.deps.CORS.Origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.deps.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.deps.Auth.Middleware)

		r.Route("/connections", func(r chi.Router) {
			h := handlers.NewConnectionHandler(rt.deps.Connections, rt.deps.Errors, rt.deps.Logger)
			r.Get("/pending", h.ListPending)
			r.Get("/status/{otherId}", h.GetStatus)
			// One parameter name per segment: the id is a target, an edge or
			// an actor depending on the suffix.
			r.Post("/{id}", h.RequestConnection)
			r.Post("/{id}/respond", h.RespondToConnection)
			r.Get("/{id}/neighbors", h.ListNeighbors)
		})

		r.Route("/intros", func(r chi.Router) {
			h := handlers.NewIntroHandler(rt.deps.Intros, rt.deps.Errors, rt.deps.Logger)
			r.Get("/pending", h.ListPending)
			r.Post("/{id}", h.RequestIntro)
			r.Put("/{id}/respond", h.RespondToIntro)
		})

		quota := handlers.NewQuotaHandler(rt.deps.Connections, rt.deps.Quota, rt.deps.Errors, rt.deps.Logger)
		r.Get("/quota", quota.GetQuota)
		r.Post("/applications/check", quota.CheckApplication)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports ready once the store answers a ping
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := rt.deps.Store.Ping(ctx); err != nil {
		rt.deps.Logger.Warn("Readiness check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
