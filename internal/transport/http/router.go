// Package httptransport is the thin HTTP layer: it decodes requests,
// delegates to the domain services and renders JSON. Business logic stays
// out of this package.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lif/internal/audit"
	"lif/internal/lif/identity"
	"lif/internal/lif/query"
	"lif/internal/mdr"
	"lif/internal/platform/config"
	"lif/internal/platform/metrics"
	"lif/internal/platform/middleware"
	"lif/internal/platform/ratelimit"
)

// QueryService is the slice of the query pipeline the transport needs.
type QueryService interface {
	Query(ctx context.Context, req query.Request) (query.Result, error)
}

// HealthChecker reports readiness of one backing dependency.
type HealthChecker func(ctx context.Context) error

// Dependencies carries everything the router serves.
type Dependencies struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Config   config.Config
	Query    QueryService
	Mappings identity.Store
	Registry *mdr.Registry
	GraphQL  http.Handler
	AuditPub *audit.Publisher

	// HealthChecks run on /healthz; a failing check degrades the response.
	HealthChecks map[string]HealthChecker
}

// NewRouter wires all endpoints behind the shared middleware chain.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(deps.Config.Server.RequestTimeout))
	r.Use(middleware.CORS(deps.Config.Server.CORSAllowList))
	if deps.Metrics != nil {
		r.Use(middleware.Latency(deps.Metrics))
	}
	r.Use(middleware.APIKeyAuth(
		deps.Config.Server.APIKeys,
		deps.Config.Server.AuthExactPaths,
		deps.Config.Server.AuthPrefixPaths,
		deps.Logger,
	))
	if deps.Config.Server.RateLimitPerMinute > 0 {
		limiter := ratelimit.NewLimiter(deps.Config.Server.RateLimitPerMinute, time.Minute)
		r.Use(middleware.RateLimit(limiter, deps.Logger))
	}

	h := &handler{
		logger:   deps.Logger,
		query:    deps.Query,
		mappings: deps.Mappings,
		registry: deps.Registry,
		auditPub: deps.AuditPub,
	}

	r.Route("/lif", func(r chi.Router) {
		r.With(middleware.ContentTypeJSON).Post("/person/query", h.handlePersonQuery)

		r.Route("/mappings", func(r chi.Router) {
			r.With(middleware.ContentTypeJSON).Post("/", h.handleRegisterMapping)
			r.Get("/", h.handleListMappings)
			r.Post("/resolve", h.handleResolveMapping)
			r.Delete("/", h.handleDeleteMapping)
		})
	})

	if deps.Registry != nil {
		r.Route("/mdr", func(r chi.Router) {
			r.Get("/entities", h.handleListEntities)
			r.With(middleware.ContentTypeJSON).Post("/entities", h.handleCreateEntity)
			r.Get("/entities/{entityID}", h.handleGetEntity)
			r.With(middleware.ContentTypeJSON).Put("/entities/{entityID}", h.handleUpdateEntity)
			r.Delete("/entities/{entityID}", h.handleDeleteEntity)

			r.With(middleware.ContentTypeJSON).Post("/entities/{entityID}/attributes", h.handleAddAttribute)
			r.Get("/entities/{entityID}/attributes", h.handleListAttributes)
			r.Delete("/attributes/{attributeID}", h.handleDeleteAttribute)

			r.With(middleware.ContentTypeJSON).Post("/entities/{entityID}/inclusions", h.handleAddInclusion)
			r.Get("/entities/{entityID}/inclusions", h.handleListInclusions)
			r.Delete("/inclusions/{inclusionID}", h.handleDeleteInclusion)

			r.Get("/paths", h.handleFragmentPaths)
			r.Get("/export", h.handleExport)
			r.With(middleware.ContentTypeJSON).Post("/import", h.handleImport)
		})
	}

	if deps.GraphQL != nil {
		r.Post("/graphql", deps.GraphQL.ServeHTTP)
	}

	r.Get("/healthz", healthHandler(deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// handler groups the REST endpoints over the domain services.
type handler struct {
	logger   *slog.Logger
	query    QueryService
	mappings identity.Store
	registry *mdr.Registry
	auditPub *audit.Publisher
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			} else {
				body[name] = "ok"
			}
		}
		writeJSON(w, status, body)
	}
}
