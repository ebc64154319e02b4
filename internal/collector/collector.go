package collector

import (
	"context"

	"github.com/kurihiro0119/rum-count/internal/classifier"
	"github.com/kurihiro0119/rum-count/internal/domain"
)

// Collector defines the interface for reading workspace data from a
// Terraform Cloud / Enterprise compatible API
type Collector interface {
	// ListOrganizations retrieves the IDs of every organization visible to the token
	ListOrganizations(ctx context.Context) ([]string, error)

	// ListWorkspaces retrieves all workspaces of an organization in listing order
	ListWorkspaces(ctx context.Context, org string) ([]domain.WorkspaceRef, error)

	// ListResources retrieves the indexed resources of a workspace, one unit each
	ListResources(ctx context.Context, workspaceID string) ([]classifier.Unit, error)

	// ListStateVersionResources retrieves the resource listing embedded in the
	// workspace's current state version, weighted by each entry's count
	ListStateVersionResources(ctx context.Context, workspaceID string) ([]classifier.Unit, error)
}
