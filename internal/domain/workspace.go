package domain

import "time"

// WorkspaceStatus is the outcome of resolving one workspace
type WorkspaceStatus string

const (
	// WorkspaceResolved means resources were fetched and classified
	WorkspaceResolved WorkspaceStatus = "resolved"
	// WorkspaceEmpty means the workspace legitimately has no resources
	WorkspaceEmpty WorkspaceStatus = "empty"
	// WorkspaceFailed means a fetch failed; counts are zero
	WorkspaceFailed WorkspaceStatus = "failed"
	// WorkspaceUnauthorized means the token could not read the workspace
	WorkspaceUnauthorized WorkspaceStatus = "unauthorized"
)

// ResourceSource identifies where a workspace's resources were read from
type ResourceSource string

const (
	SourceNone         ResourceSource = "none"
	SourceResources    ResourceSource = "resources"
	SourceStateVersion ResourceSource = "state-version"
	SourceStateFile    ResourceSource = "state-file"
)

// WorkspaceRef is a workspace as listed by the API
type WorkspaceRef struct {
	ID               string
	Name             string
	Organization     string
	TerraformVersion string
	LastUpdated      time.Time
	ResourceCount    uint64
}

// WorkspaceSummary is the resolved view of one workspace
type WorkspaceSummary struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	TerraformVersion string          `json:"terraform_version"`
	LastUpdated      time.Time       `json:"last_updated"`
	ResourceCount    uint64          `json:"resource_count"`
	Resources        ResourceCounts  `json:"resources"`
	Status           WorkspaceStatus `json:"status"`
	Source           ResourceSource  `json:"source"`
	Error            string          `json:"error,omitempty"`
}

// NewWorkspaceSummary creates a summary for ref with the given outcome
func NewWorkspaceSummary(ref WorkspaceRef, counts ResourceCounts, status WorkspaceStatus, source ResourceSource, err error) WorkspaceSummary {
	ws := WorkspaceSummary{
		ID:               ref.ID,
		Name:             ref.Name,
		TerraformVersion: ref.TerraformVersion,
		LastUpdated:      ref.LastUpdated,
		ResourceCount:    ref.ResourceCount,
		Resources:        counts,
		Status:           status,
		Source:           source,
	}
	if err != nil {
		ws.Error = err.Error()
	}
	return ws
}

// Failed reports whether the workspace could not be resolved
func (w WorkspaceSummary) Failed() bool {
	return w.Status == WorkspaceFailed || w.Status == WorkspaceUnauthorized
}
