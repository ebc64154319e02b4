package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kurihiro0119/rum-count/internal/domain"
	"github.com/kurihiro0119/rum-count/internal/report"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// documentToResult rebuilds a run result from a remote report so it can go
// through the local renderers
func documentToResult(doc *report.Document) *domain.RunResult {
	result := &domain.RunResult{
		ID:            doc.RunID,
		Source:        doc.Source,
		StartedAt:     doc.StartedAt,
		FinishedAt:    doc.FinishedAt,
		Organizations: make([]domain.OrganizationSummary, 0, len(doc.Organizations)),
	}
	for _, org := range doc.Organizations {
		result.Organizations = append(result.Organizations, org.OrganizationSummary)
	}
	return result
}

// remoteOrganization picks the ?org= filter; the report API filters on one
// organization at most
func remoteOrganization(orgs []string) (string, error) {
	switch len(orgs) {
	case 0:
		return "", nil
	case 1:
		return orgs[0], nil
	default:
		return "", fmt.Errorf("remote reports filter on a single organization, got %d", len(orgs))
	}
}
