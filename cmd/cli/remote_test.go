package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kurihiro0119/rum-count/internal/api"
	"github.com/kurihiro0119/rum-count/internal/domain"
	"github.com/kurihiro0119/rum-count/internal/report"
)

func TestDocumentToResultRoundTrip(t *testing.T) {
	original := &domain.RunResult{
		ID:     "run-1",
		Source: domain.RunSourceAPI,
		Organizations: []domain.OrganizationSummary{
			{ID: "acme", Workspaces: []domain.WorkspaceSummary{
				{ID: "ws-1", Resources: domain.NewResourceCounts(3, 1, 2), Status: domain.WorkspaceResolved},
			}},
			domain.UnavailableOrganization("globex", nil),
		},
	}

	doc := report.NewDocument(original)
	result := documentToResult(&doc)

	require.Len(t, result.Organizations, 2)
	assert.Equal(t, "run-1", result.ID)
	assert.Equal(t, original.GrandTotal(), result.GrandTotal())
	assert.True(t, result.Organizations[1].Unavailable)
}

func TestRemoteOrganization(t *testing.T) {
	org, err := remoteOrganization(nil)
	require.NoError(t, err)
	assert.Empty(t, org)

	org, err = remoteOrganization([]string{"acme"})
	require.NoError(t, err)
	assert.Equal(t, "acme", org)

	_, err = remoteOrganization([]string{"acme", "globex"})
	assert.Error(t, err)
}

type fixedRunner struct {
	result *domain.RunResult
}

func (r fixedRunner) Run(ctx context.Context) (*domain.RunResult, error) {
	return r.result, nil
}

func TestRunRemote(t *testing.T) {
	gin.SetMode(gin.TestMode)
	result := &domain.RunResult{
		ID:     "run-1",
		Source: domain.RunSourceAPI,
		Organizations: []domain.OrganizationSummary{
			{ID: "acme", Workspaces: []domain.WorkspaceSummary{
				{ID: "ws-1", Name: "net", Resources: domain.NewResourceCounts(3, 1, 2), Status: domain.WorkspaceResolved},
			}},
		},
	}
	server := httptest.NewServer(api.SetupRoutes(api.NewHandler(fixedRunner{result: result}, zap.NewNop()), zap.NewNop()))
	defer server.Close()

	t.Setenv("TF_ORG", "")
	t.Cleanup(func() {
		apiEndpoint, outputCSV = "", false
	})
	apiEndpoint = server.URL

	run := func(t *testing.T) (string, error) {
		t.Helper()
		var out bytes.Buffer
		remoteCmd.SetOut(&out)
		remoteCmd.SetContext(context.Background())
		err := runRemote(remoteCmd, nil)
		return out.String(), err
	}

	t.Run("csv", func(t *testing.T) {
		outputCSV = true
		defer func() { outputCSV = false }()

		out, err := run(t)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "organization,workspace_id"))
		assert.True(t, strings.HasPrefix(lines[1], "acme,ws-1,net"))
	})

	t.Run("summary", func(t *testing.T) {
		out, err := run(t)
		require.NoError(t, err)
		assert.Contains(t, out, "acme")
		assert.Contains(t, strings.ToUpper(out), "GRAND TOTAL")
	})

	t.Run("several organizations", func(t *testing.T) {
		t.Setenv("TF_ORG", "acme,globex")

		_, err := run(t)
		assert.ErrorContains(t, err, "single organization")
	})
}
