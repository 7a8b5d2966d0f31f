// Package config builds runtime configuration from environment variables so
// main stays lean. Every recognized option has a sane development default;
// options the service cannot run without are validated at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string

	// CORSAllowList is the set of allowed origins. Empty disables CORS headers.
	CORSAllowList []string

	// AuthExactPaths and AuthPrefixPaths list request paths exempt from
	// API-key authentication, matched exactly or by prefix.
	AuthExactPaths  []string
	AuthPrefixPaths []string

	// APIKeys maps API key values to calling service names.
	APIKeys map[string]string

	RequestTimeout time.Duration

	// RateLimitPerMinute bounds requests per caller per minute. Zero
	// disables rate limiting.
	RateLimitPerMinute int
}

// Orchestrator selects and configures the external job orchestrator client.
type Orchestrator struct {
	// Kind selects the client implementation: "http" or "dagster".
	Kind    string
	BaseURL string
	APIKey  string

	// QueryTimeout bounds one logical query end to end.
	QueryTimeout time.Duration

	// JobPollTimeout bounds the wait for a single job to reach a terminal
	// status; JobPollInterval is the initial backoff between polls.
	JobPollTimeout  time.Duration
	JobPollInterval time.Duration

	// SubmitRetries bounds re-submission attempts on dispatch failure.
	SubmitRetries int

	// RequireAll fails the whole request on any part failure or timeout
	// instead of returning a partial record with warnings.
	RequireAll bool
}

// RedisConfig configures the optional Redis cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// CacheTTL bounds how long resolved identity mappings stay cached.
	CacheTTL time.Duration
}

// Config is the full runtime configuration.
type Config struct {
	Server       Server
	Orchestrator Orchestrator
	Redis        RedisConfig

	// PostgresURL is the DSN for the identity-mapping and MDR stores.
	// Empty selects the in-memory stores (development mode).
	PostgresURL string

	// SourcesFile points at the JSON document declaring the information
	// sources and their fragment capabilities.
	SourcesFile string

	// GraphQLRootType names the root object type of the generated schema.
	GraphQLRootType string

	// OpenAPIFile optionally points at an OpenAPI document to compile the
	// queryable schema from instead of the metadata registry.
	OpenAPIFile string
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:               getEnv("LIF_ADDR", ":8080"),
			CORSAllowList:      splitList(os.Getenv("LIF_CORS_ALLOW_LIST")),
			AuthExactPaths:     splitList(getEnv("LIF_AUTH_EXACT_PATHS", "/healthz,/metrics")),
			AuthPrefixPaths:    splitList(os.Getenv("LIF_AUTH_PREFIX_PATHS")),
			APIKeys:            parseAPIKeys(os.Getenv("LIF_API_KEYS")),
			RequestTimeout:     getDurationSeconds("LIF_REQUEST_TIMEOUT_SECONDS", 30*time.Second),
			RateLimitPerMinute: getInt("LIF_RATE_LIMIT_PER_MINUTE", 0),
		},
		Orchestrator: Orchestrator{
			Kind:            getEnv("LIF_ORCHESTRATOR_KIND", "http"),
			BaseURL:         os.Getenv("LIF_ORCHESTRATOR_URL"),
			APIKey:          os.Getenv("LIF_ORCHESTRATOR_API_KEY"),
			QueryTimeout:    getDurationSeconds("LIF_QUERY_TIMEOUT_SECONDS", 20*time.Second),
			JobPollTimeout:  getDurationSeconds("LIF_JOB_POLL_TIMEOUT_SECONDS", 15*time.Second),
			JobPollInterval: getDurationSeconds("LIF_JOB_POLL_INTERVAL_SECONDS", 1*time.Second),
			SubmitRetries:   getInt("LIF_SUBMIT_RETRIES", 3),
			RequireAll:      os.Getenv("LIF_REQUIRE_ALL") == "true",
		},
		Redis: RedisConfig{
			URL:          os.Getenv("LIF_REDIS_URL"),
			PoolSize:     getInt("LIF_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("LIF_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationSeconds("LIF_REDIS_DIAL_TIMEOUT_SECONDS", 5*time.Second),
			ReadTimeout:  getDurationSeconds("LIF_REDIS_READ_TIMEOUT_SECONDS", 3*time.Second),
			WriteTimeout: getDurationSeconds("LIF_REDIS_WRITE_TIMEOUT_SECONDS", 3*time.Second),
			CacheTTL:     getDurationSeconds("LIF_REDIS_CACHE_TTL_SECONDS", 300*time.Second),
		},
		PostgresURL:     os.Getenv("LIF_POSTGRES_URL"),
		SourcesFile:     getEnv("LIF_SOURCES_FILE", "sources.json"),
		GraphQLRootType: getEnv("LIF_GRAPHQL_ROOT_TYPE", "Person"),
		OpenAPIFile:     os.Getenv("LIF_OPENAPI_FILE"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate rejects configurations the service cannot serve with. Missing
// configuration is fatal at startup, never guessed at.
func (c Config) validate() error {
	switch c.Orchestrator.Kind {
	case "http", "dagster":
	default:
		return fmt.Errorf("config: unknown orchestrator kind %q", c.Orchestrator.Kind)
	}
	if c.Orchestrator.BaseURL == "" {
		return fmt.Errorf("config: LIF_ORCHESTRATOR_URL is required")
	}
	if c.Orchestrator.QueryTimeout <= 0 || c.Orchestrator.JobPollTimeout <= 0 {
		return fmt.Errorf("config: timeouts must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDurationSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseAPIKeys parses "key1=serviceA,key2=serviceB" into a lookup map.
func parseAPIKeys(v string) map[string]string {
	keys := make(map[string]string)
	for _, pair := range splitList(v) {
		key, service, ok := strings.Cut(pair, "=")
		if !ok || key == "" || service == "" {
			continue
		}
		keys[key] = service
	}
	return keys
}
