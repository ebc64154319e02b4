// Package report renders collection results as tables, CSV or JSON.
package report

import (
	"time"

	"github.com/kurihiro0119/rum-count/internal/domain"
)

// Document is the serialized form of a run, with the folds precomputed
type Document struct {
	RunID         string                 `json:"run_id"`
	Source        domain.RunSource       `json:"source"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    time.Time              `json:"finished_at"`
	Organizations []OrganizationDocument `json:"organizations"`
	GrandTotal    domain.ResourceCounts  `json:"grand_total"`
	Failures      []domain.Failure       `json:"failures"`
}

// OrganizationDocument is one organization with its subtotal
type OrganizationDocument struct {
	domain.OrganizationSummary
	Subtotal domain.ResourceCounts `json:"subtotal"`
}

// Summary carries only the per-organization subtotals and the grand total
type Summary struct {
	RunID         string                `json:"run_id"`
	Organizations []OrganizationTotal   `json:"organizations"`
	Workspaces    int                   `json:"workspaces"`
	GrandTotal    domain.ResourceCounts `json:"grand_total"`
	Failures      int                   `json:"failures"`
}

// OrganizationTotal is one row of a Summary
type OrganizationTotal struct {
	ID          string                `json:"id"`
	Workspaces  int                   `json:"workspaces"`
	Subtotal    domain.ResourceCounts `json:"subtotal"`
	Unavailable bool                  `json:"unavailable,omitempty"`
}

// NewDocument builds a Document from a run result
func NewDocument(result *domain.RunResult) Document {
	doc := Document{
		RunID:         result.ID,
		Source:        result.Source,
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
		Organizations: make([]OrganizationDocument, 0, len(result.Organizations)),
		GrandTotal:    result.GrandTotal(),
		Failures:      result.Failures(),
	}
	for _, org := range result.Organizations {
		doc.Organizations = append(doc.Organizations, OrganizationDocument{
			OrganizationSummary: org,
			Subtotal:            org.Subtotal(),
		})
	}
	if doc.Failures == nil {
		doc.Failures = []domain.Failure{}
	}
	return doc
}

// NewSummary builds a Summary from a run result
func NewSummary(result *domain.RunResult) Summary {
	s := Summary{
		RunID:         result.ID,
		Organizations: make([]OrganizationTotal, 0, len(result.Organizations)),
		Workspaces:    result.WorkspaceCount(),
		GrandTotal:    result.GrandTotal(),
		Failures:      len(result.Failures()),
	}
	for _, org := range result.Organizations {
		s.Organizations = append(s.Organizations, OrganizationTotal{
			ID:          org.ID,
			Workspaces:  len(org.Workspaces),
			Subtotal:    org.Subtotal(),
			Unavailable: org.Unavailable,
		})
	}
	return s
}

// Filter returns a copy of result restricted to the given organization.
// ok is false when the organization is not part of the run.
func Filter(result *domain.RunResult, org string) (*domain.RunResult, bool) {
	for _, o := range result.Organizations {
		if o.ID == org {
			filtered := *result
			filtered.Organizations = []domain.OrganizationSummary{o}
			return &filtered, true
		}
	}
	return nil, false
}
