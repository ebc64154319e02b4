package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kurihiro0119/rum-count/internal/config"
	"github.com/kurihiro0119/rum-count/internal/domain"
)

func testConfig(addr string) *config.Config {
	return &config.Config{
		BaseURL:           addr,
		APIVersion:        config.DefaultAPIVersion,
		Token:             "secret",
		PageSize:          config.DefaultPageSize,
		ConcurrencyLimit:  4,
		OrgConcurrency:    1,
		RetryDelay:        time.Millisecond,
		MaxRetryDelay:     time.Millisecond,
		BackoffMultiplier: 1,
		RequestTimeout:    5 * time.Second,
		LogLevel:          "error",
	}
}

func TestFetcherOptions(t *testing.T) {
	cfg := testConfig("https://tfe.example.com")
	cfg.MaxRetries = 5
	cfg.RetryJitter = 0.2
	cfg.BreakerThreshold = 3
	cfg.BreakerTimeout = time.Minute
	cfg.ConcurrencyLimit = 10
	cfg.OrgConcurrency = 2

	opts := FetcherOptions(cfg)
	assert.Equal(t, "https://tfe.example.com", opts.BaseURL)
	assert.Equal(t, "/api/v2", opts.APIVersion)
	assert.Equal(t, 5, opts.Retry.MaxRetries)
	assert.Equal(t, 0.2, opts.Retry.Jitter)
	assert.Equal(t, uint32(3), opts.BreakerThreshold)
	assert.Equal(t, time.Minute, opts.BreakerTimeout)
	assert.Equal(t, uint32(20), opts.BreakerMaxRequests)
}

func TestNewLogger(t *testing.T) {
	cfg := testConfig("https://tfe.example.com")
	cfg.LogFormat = "json"

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

// fake Terraform API with one organization, one live workspace and one that
// only has a state version
func fakeTFE(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/organizations", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data": [{"id": "acme"}], "links": {"next": null}}`))
	})
	mux.HandleFunc("/api/v2/organizations/acme/workspaces", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [
			{"id": "ws-live", "attributes": {"name": "live", "resource-count": 2}},
			{"id": "ws-sv", "attributes": {"name": "sv", "resource-count": 4}},
			{"id": "ws-none", "attributes": {"name": "none", "resource-count": 0}}
		]}`))
	})
	mux.HandleFunc("/api/v2/workspaces/ws-live/resources", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [
			{"id": "r1", "attributes": {"provider-type": "aws_instance"}},
			{"id": "r2", "attributes": {"provider-type": "data.aws_ami"}}
		]}`))
	})
	mux.HandleFunc("/api/v2/workspaces/ws-sv/resources", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	})
	mux.HandleFunc("/api/v2/workspaces/ws-sv/current-state-version", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"attributes": {"resources": [
			{"type": "aws_s3_bucket", "count": 3},
			{"type": "null_resource", "count": 1}
		]}}}`))
	})
	mux.HandleFunc("/api/v2/workspaces/ws-none/resources", func(w http.ResponseWriter, r *http.Request) {
		t.Error("workspace without resources must not be fetched")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestNewAggregatorEndToEnd(t *testing.T) {
	server := fakeTFE(t)

	agg, err := NewAggregator(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	result, err := agg.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Organizations, 1)
	org := result.Organizations[0]
	require.Len(t, org.Workspaces, 3)
	assert.Equal(t, domain.NewResourceCounts(1, 0, 1), org.Workspaces[0].Resources)
	assert.Equal(t, domain.SourceStateVersion, org.Workspaces[1].Source)
	assert.Equal(t, domain.NewResourceCounts(3, 1, 0), org.Workspaces[1].Resources)
	assert.Equal(t, domain.WorkspaceEmpty, org.Workspaces[2].Status)
	assert.Equal(t, domain.NewResourceCounts(4, 1, 1), result.GrandTotal())
}

func TestNewAggregatorRejectsBadAddress(t *testing.T) {
	_, err := NewAggregator(testConfig("not a url"), zap.NewNop())
	assert.Error(t, err)
}
