package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kurihiro0119/rum-count/internal/domain"
	apperrors "github.com/kurihiro0119/rum-count/internal/errors"
	"github.com/kurihiro0119/rum-count/internal/report"
)

type stubRunner struct {
	result  *domain.RunResult
	err     error
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (s *stubRunner) Run(ctx context.Context) (*domain.RunResult, error) {
	s.calls.Add(1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	return s.result, s.err
}

func testResult() *domain.RunResult {
	return &domain.RunResult{
		ID:     "run-1",
		Source: domain.RunSourceAPI,
		Organizations: []domain.OrganizationSummary{
			{ID: "acme", Workspaces: []domain.WorkspaceSummary{
				{ID: "ws-1", Name: "net", ResourceCount: 3, Resources: domain.NewResourceCounts(2, 1, 0), Status: domain.WorkspaceResolved},
			}},
			{ID: "globex", Workspaces: []domain.WorkspaceSummary{
				{ID: "ws-2", Name: "app", ResourceCount: 1, Resources: domain.NewResourceCounts(0, 0, 1), Status: domain.WorkspaceResolved},
			}},
		},
	}
}

func setupRouter(runner Runner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return SetupRoutes(NewHandler(runner, zap.NewNop()), zap.NewNop())
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	rec := get(t, setupRouter(&stubRunner{}), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetReport(t *testing.T) {
	runner := &stubRunner{result: testResult()}
	rec := get(t, setupRouter(runner), "/api/v1/report")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data report.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.Data.RunID)
	require.Len(t, body.Data.Organizations, 2)
	assert.Equal(t, domain.NewResourceCounts(2, 1, 1), body.Data.GrandTotal)
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestGetReportInvalidOrganization(t *testing.T) {
	runner := &stubRunner{result: testResult()}
	rec := get(t, setupRouter(runner), "/api/v1/report?org=a%2Fb")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "BAD_REQUEST")
	assert.Equal(t, int32(0), runner.calls.Load())
}

func TestConcurrentReportsShareOneRun(t *testing.T) {
	runner := &stubRunner{
		result:  testResult(),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	router := setupRouter(runner)

	paths := []string{"/api/v1/report", "/api/v1/report/summary", "/api/v1/report?org=acme"}
	codes := make([]int, len(paths))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		codes[0] = get(t, router, paths[0]).Code
	}()
	<-runner.started

	for i := 1; i < len(paths); i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = get(t, router, paths[i]).Code
		}()
	}
	// give the later requests time to join the run in flight
	time.Sleep(100 * time.Millisecond)
	close(runner.release)
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestSequentialReportsRunAgain(t *testing.T) {
	runner := &stubRunner{result: testResult()}
	router := setupRouter(runner)

	get(t, router, "/api/v1/report")
	get(t, router, "/api/v1/report")
	assert.Equal(t, int32(2), runner.calls.Load())
}

func TestGetReportFilteredByOrganization(t *testing.T) {
	rec := get(t, setupRouter(&stubRunner{result: testResult()}), "/api/v1/report?org=globex")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data report.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Organizations, 1)
	assert.Equal(t, "globex", body.Data.Organizations[0].ID)
	assert.Equal(t, uint64(1), body.Data.GrandTotal.Total)
}

func TestGetReportUnknownOrganization(t *testing.T) {
	rec := get(t, setupRouter(&stubRunner{result: testResult()}), "/api/v1/report?org=nobody")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestGetReportUpstreamFailure(t *testing.T) {
	runner := &stubRunner{err: apperrors.FromStatus(http.StatusUnauthorized, "https://tfe/api/v2/organizations")}
	rec := get(t, setupRouter(runner), "/api/v1/report")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestGetSummary(t *testing.T) {
	rec := get(t, setupRouter(&stubRunner{result: testResult()}), "/api/v1/report/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data report.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.Workspaces)
	assert.Equal(t, uint64(4), body.Data.GrandTotal.Total)
	require.Len(t, body.Data.Organizations, 2)
	assert.Equal(t, uint64(3), body.Data.Organizations[0].Subtotal.Total)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, setupRouter(&stubRunner{}), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/report", nil)
	rec := httptest.NewRecorder()
	setupRouter(&stubRunner{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
