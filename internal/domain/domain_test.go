package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertConsistent(t *testing.T, c ResourceCounts) {
	t.Helper()
	assert.Equal(t, c.RUM+c.DataResource+c.NullResource, c.Total)
}

func TestResourceCountsTotalIsSumOfKinds(t *testing.T) {
	c := NewResourceCounts(3, 2, 1)
	assertConsistent(t, c)
	assert.Equal(t, uint64(6), c.Total)

	c = c.With(CategoryRUM, 4).With(CategoryDataResource, 2).With(CategoryNullResource, 1)
	assertConsistent(t, c)
	assert.Equal(t, NewResourceCounts(7, 3, 3), c)

	sum := Sum(NewResourceCounts(1, 0, 0), NewResourceCounts(0, 1, 0), NewResourceCounts(0, 0, 1))
	assertConsistent(t, sum)
	assert.Equal(t, uint64(3), sum.Total)
}

func TestAddDoesNotMutate(t *testing.T) {
	a := NewResourceCounts(1, 1, 1)
	b := a.Add(NewResourceCounts(1, 0, 0))

	assert.Equal(t, NewResourceCounts(1, 1, 1), a)
	assert.Equal(t, NewResourceCounts(2, 1, 1), b)
}

func sampleRun() *RunResult {
	return &RunResult{
		Organizations: []OrganizationSummary{
			{
				ID: "org-a",
				Workspaces: []WorkspaceSummary{
					{ID: "ws-1", Resources: NewResourceCounts(5, 1, 2), Status: WorkspaceResolved},
					{ID: "ws-2", Resources: NewResourceCounts(0, 0, 0), Status: WorkspaceFailed, Error: "boom"},
				},
			},
			UnavailableOrganization("org-b", errors.New("NOT_FOUND")),
			{
				ID: "org-c",
				Workspaces: []WorkspaceSummary{
					{ID: "ws-3", Resources: NewResourceCounts(10, 0, 4), Status: WorkspaceResolved},
				},
			},
		},
	}
}

func TestGrandTotalMatchesWorkspaceFold(t *testing.T) {
	run := sampleRun()

	var total, rum, data, null uint64
	for _, org := range run.Organizations {
		for _, ws := range org.Workspaces {
			total += ws.Resources.Total
			rum += ws.Resources.RUM
			data += ws.Resources.DataResource
			null += ws.Resources.NullResource
		}
	}

	grand := run.GrandTotal()
	assertConsistent(t, grand)
	assert.Equal(t, total, grand.Total)
	assert.Equal(t, rum+data+null, grand.Total)
	assert.Equal(t, NewResourceCounts(15, 1, 6), grand)
	assert.Equal(t, 3, run.WorkspaceCount())
}

func TestFailures(t *testing.T) {
	failures := sampleRun().Failures()
	require.Len(t, failures, 2)

	assert.Equal(t, Failure{Organization: "org-a", Workspace: "ws-2", Status: "failed", Error: "boom"}, failures[0])
	assert.Equal(t, "org-b", failures[1].Organization)
	assert.Equal(t, "unavailable", failures[1].Status)
}

func TestNewWorkspaceSummary(t *testing.T) {
	ref := WorkspaceRef{ID: "ws-1", Name: "prod", TerraformVersion: "1.5.7", ResourceCount: 3}

	ws := NewWorkspaceSummary(ref, ResourceCounts{}, WorkspaceUnauthorized, SourceNone, errors.New("401"))
	assert.Equal(t, "prod", ws.Name)
	assert.Equal(t, uint64(3), ws.ResourceCount)
	assert.Equal(t, "401", ws.Error)
	assert.True(t, ws.Failed())
}
