package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"lif/internal/audit"
	"lif/internal/graphql"
	"lif/internal/lif/fragment"
	"lif/internal/lif/identity"
	"lif/internal/lif/orchestrator"
	"lif/internal/lif/plan"
	"lif/internal/lif/query"
	"lif/internal/lif/schema"
	"lif/internal/mdr"
	"lif/internal/platform/config"
	"lif/internal/platform/httpserver"
	"lif/internal/platform/logger"
	"lif/internal/platform/metrics"
	"lif/internal/platform/redis"
	httptransport "lif/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies and owns the server lifecycle. Business logic
// lives in the internal services packages.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("fatal", "error", err.Error())
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	m := metrics.New()
	healthChecks := map[string]httptransport.HealthChecker{}

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		mappings identity.Store
		mdrStore mdr.Store
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(context.Background()); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		mappings = identity.NewPostgres(db)
		mdrStore = mdr.NewPostgres(db)
		healthChecks["postgres"] = db.PingContext
	} else {
		log.Warn("LIF_POSTGRES_URL not set, using in-memory stores")
		mappings = identity.NewMemoryStore()
		mdrStore = mdr.NewMemoryStore()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		mappings = identity.NewCachedStore(mappings, redisClient, cfg.Redis.CacheTTL, log)
		healthChecks["redis"] = redisClient.Health
	}

	auditPub := audit.NewPublisher(audit.NewInMemoryStore(), audit.WithAsyncBuffer(256))
	defer auditPub.Close()

	sources, err := plan.LoadFile(cfg.SourcesFile)
	if err != nil {
		return err
	}
	planner, err := plan.NewBuilder(sources)
	if err != nil {
		return err
	}

	client, err := orchestrator.NewClient(cfg.Orchestrator, log)
	if err != nil {
		return err
	}

	querySvc := query.NewService(planner, mappings, client, cfg.Orchestrator, log, m, auditPub)
	registry := mdr.NewRegistry(mdrStore)

	gql, err := buildGraphQL(cfg, registry, querySvc, log)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Logger:       log,
		Metrics:      m,
		Config:       cfg,
		Query:        querySvc,
		Mappings:     mappings,
		Registry:     registry,
		GraphQL:      gql,
		AuditPub:     auditPub,
		HealthChecks: healthChecks,
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("lif listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// buildGraphQL derives the queryable schema, preferring an OpenAPI document
// when one is configured and falling back to the metadata registry. An empty
// registry means no /graphql endpoint yet; REST stays available so the
// registry can be populated.
func buildGraphQL(cfg config.Config, registry *mdr.Registry, querySvc *query.Service, log *slog.Logger) (http.Handler, error) {
	var paths []fragment.Path

	if cfg.OpenAPIFile != "" {
		raw, err := os.ReadFile(cfg.OpenAPIFile)
		if err != nil {
			return nil, fmt.Errorf("read openapi document: %w", err)
		}
		compiled, err := schema.Compile(raw, cfg.GraphQLRootType)
		if err != nil {
			return nil, fmt.Errorf("compile openapi document: %w", err)
		}
		paths = compiled.Paths
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		derived, err := registry.FragmentPaths(ctx)
		if err != nil {
			log.Warn("metadata registry has no person entity, /graphql disabled", "error", err.Error())
			return nil, nil
		}
		paths = derived
	}

	if len(paths) == 0 {
		log.Warn("no queryable fragment paths, /graphql disabled")
		return nil, nil
	}
	return graphql.NewHandler(paths, cfg.GraphQLRootType, querySvc, log)
}
