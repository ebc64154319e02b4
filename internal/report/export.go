package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kurihiro0119/rum-count/internal/domain"
)

var csvHeader = []string{
	"organization", "workspace_id", "workspace_name", "terraform_version", "last_updated",
	"resource_count", "rum", "data_resource", "null_resource", "total", "status", "source",
}

// CSV writes one row per workspace. Subtotals are left to the consumer.
func CSV(w io.Writer, result *domain.RunResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, org := range result.Organizations {
		for _, ws := range org.Workspaces {
			row := []string{
				org.ID, ws.ID, ws.Name, ws.TerraformVersion, formatDate(ws),
				u64(ws.ResourceCount), u64(ws.Resources.RUM), u64(ws.Resources.DataResource),
				u64(ws.Resources.NullResource), u64(ws.Resources.Total),
				string(ws.Status), string(ws.Source),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSON writes the full Document, or only the Summary when summaryOnly is set
func JSON(w io.Writer, result *domain.RunResult, summaryOnly bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if summaryOnly {
		return enc.Encode(NewSummary(result))
	}
	return enc.Encode(NewDocument(result))
}
