package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("LIF_ORCHESTRATOR_URL", "http://orchestrator:9090")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"/healthz", "/metrics"}, cfg.Server.AuthExactPaths)
	assert.Zero(t, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, "http", cfg.Orchestrator.Kind)
	assert.Equal(t, 20*time.Second, cfg.Orchestrator.QueryTimeout)
	assert.Equal(t, 3, cfg.Orchestrator.SubmitRetries)
	assert.False(t, cfg.Orchestrator.RequireAll)
	assert.Equal(t, "Person", cfg.GraphQLRootType)
	assert.Equal(t, "sources.json", cfg.SourcesFile)
}

func TestFromEnv_MissingOrchestratorURLIsFatal(t *testing.T) {
	t.Setenv("LIF_ORCHESTRATOR_URL", "")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "LIF_ORCHESTRATOR_URL")
}

func TestFromEnv_UnknownOrchestratorKindIsFatal(t *testing.T) {
	t.Setenv("LIF_ORCHESTRATOR_URL", "http://orchestrator:9090")
	t.Setenv("LIF_ORCHESTRATOR_KIND", "airflow")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "airflow")
}

func TestParseAPIKeys(t *testing.T) {
	keys := parseAPIKeys("key1=portal, key2=reporting,malformed,=nosvc")
	assert.Equal(t, map[string]string{"key1": "portal", "key2": "reporting"}, keys)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b "))
}
