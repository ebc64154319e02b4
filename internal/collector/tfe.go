package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/kurihiro0119/rum-count/internal/classifier"
	"github.com/kurihiro0119/rum-count/internal/domain"
	apperrors "github.com/kurihiro0119/rum-count/internal/errors"
)

// tfeCollector implements Collector using the Terraform Cloud / Enterprise API
type tfeCollector struct {
	fetcher *Fetcher
}

// NewTFECollector creates a new Terraform API collector
func NewTFECollector(fetcher *Fetcher) Collector {
	return &tfeCollector{fetcher: fetcher}
}

type organizationRecord struct {
	ID string `json:"id"`
}

type workspaceRecord struct {
	ID         string `json:"id"`
	Attributes struct {
		Name             *string    `json:"name"`
		ResourceCount    *uint64    `json:"resource-count"`
		TerraformVersion string     `json:"terraform-version"`
		LatestChangeAt   *time.Time `json:"latest-change-at"`
	} `json:"attributes"`
}

type resourceRecord struct {
	ID         string `json:"id"`
	Attributes struct {
		ProviderType *string `json:"provider-type"`
	} `json:"attributes"`
}

type stateVersionRecord struct {
	ID         string `json:"id"`
	Attributes struct {
		Resources []struct {
			Type  *string `json:"type"`
			Count *uint64 `json:"count"`
		} `json:"resources"`
	} `json:"attributes"`
}

// ListOrganizations retrieves all organizations visible to the token
func (c *tfeCollector) ListOrganizations(ctx context.Context) ([]string, error) {
	records, err := c.fetcher.FetchAll(ctx, "/organizations", url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	orgs := make([]string, 0, len(records))
	for _, raw := range records {
		var rec organizationRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == "" {
			return nil, apperrors.NewMalformedResponseError("/organizations", "organization without id", err)
		}
		orgs = append(orgs, rec.ID)
	}
	return orgs, nil
}

// ListWorkspaces retrieves all workspaces of an organization
func (c *tfeCollector) ListWorkspaces(ctx context.Context, org string) ([]domain.WorkspaceRef, error) {
	path := fmt.Sprintf("/organizations/%s/workspaces", url.PathEscape(org))
	records, err := c.fetcher.FetchAll(ctx, path, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces for %s: %w", org, err)
	}

	refs := make([]domain.WorkspaceRef, 0, len(records))
	for _, raw := range records {
		var rec workspaceRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, apperrors.NewMalformedResponseError(path, "invalid workspace record", err)
		}
		if rec.ID == "" || rec.Attributes.Name == nil || rec.Attributes.ResourceCount == nil {
			return nil, apperrors.NewMalformedResponseError(path, "workspace record missing id, name or resource-count", nil)
		}

		ref := domain.WorkspaceRef{
			ID:               rec.ID,
			Name:             *rec.Attributes.Name,
			Organization:     org,
			TerraformVersion: rec.Attributes.TerraformVersion,
			ResourceCount:    *rec.Attributes.ResourceCount,
		}
		if rec.Attributes.LatestChangeAt != nil {
			ref.LastUpdated = *rec.Attributes.LatestChangeAt
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ListResources retrieves the indexed resources of a workspace
func (c *tfeCollector) ListResources(ctx context.Context, workspaceID string) ([]classifier.Unit, error) {
	path := fmt.Sprintf("/workspaces/%s/resources", url.PathEscape(workspaceID))
	records, err := c.fetcher.FetchAll(ctx, path, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to list resources for %s: %w", workspaceID, err)
	}

	units := make([]classifier.Unit, 0, len(records))
	for _, raw := range records {
		var rec resourceRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, apperrors.NewMalformedResponseError(path, "invalid resource record", err)
		}
		if rec.Attributes.ProviderType == nil {
			return nil, apperrors.NewMalformedResponseError(path, "resource record missing provider-type", nil)
		}
		units = append(units, classifier.Unit{Type: *rec.Attributes.ProviderType, Count: 1})
	}
	return units, nil
}

// ListStateVersionResources retrieves the resources of the current state version
func (c *tfeCollector) ListStateVersionResources(ctx context.Context, workspaceID string) ([]classifier.Unit, error) {
	path := fmt.Sprintf("/workspaces/%s/current-state-version", url.PathEscape(workspaceID))
	raw, err := c.fetcher.FetchOne(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to get current state version for %s: %w", workspaceID, err)
	}

	var rec stateVersionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, apperrors.NewMalformedResponseError(path, "invalid state version record", err)
	}

	units := make([]classifier.Unit, 0, len(rec.Attributes.Resources))
	for _, rs := range rec.Attributes.Resources {
		if rs.Type == nil || rs.Count == nil {
			return nil, apperrors.NewMalformedResponseError(path, "state version resource missing type or count", nil)
		}
		units = append(units, classifier.Unit{Type: *rs.Type, Count: *rs.Count})
	}
	return units, nil
}
