package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/kurihiro0119/rum-count/internal/domain"
)

const dateLayout = "2006-01-02"

var workspaceHeader = []string{
	"ID", "Name", "Version", "Last Updated", "Resource Count",
	"RUM", "Data RS", "Null RS", "Total", "Status",
}

// TableOptions controls table output
type TableOptions struct {
	// Verbose prints every workspace; otherwise one row per organization
	Verbose bool
}

// Table writes result as text tables. Verbose output has one table per
// organization with a subtotal footer followed by the grand total.
func Table(w io.Writer, result *domain.RunResult, opts TableOptions) {
	if opts.Verbose {
		for _, org := range result.Organizations {
			fmt.Fprintf(w, "\nOrg ID: %s\n", org.ID)
			if org.Unavailable {
				fmt.Fprintf(w, "Unavailable: %s\n", org.Error)
				continue
			}
			organizationTable(w, org)
		}
	} else {
		summaryTable(w, result)
	}

	fmt.Fprintln(w, "\nGrand Total:")
	total := result.GrandTotal()
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Workspaces", "RUM", "Data RS", "Null RS", "Total"})
	table.Append([]string{
		strconv.Itoa(result.WorkspaceCount()),
		u64(total.RUM), u64(total.DataResource), u64(total.NullResource), u64(total.Total),
	})
	table.Render()

	if failures := result.Failures(); len(failures) > 0 {
		fmt.Fprintf(w, "\n%d unit(s) could not be counted:\n", len(failures))
		ft := tablewriter.NewWriter(w)
		ft.SetHeader([]string{"Organization", "Workspace", "Status", "Error"})
		for _, f := range failures {
			ft.Append([]string{f.Organization, f.Workspace, f.Status, f.Error})
		}
		ft.Render()
	}
}

func organizationTable(w io.Writer, org domain.OrganizationSummary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(workspaceHeader)
	table.SetAutoWrapText(false)
	for _, ws := range org.Workspaces {
		table.Append(workspaceRow(ws))
	}

	sub := org.Subtotal()
	table.SetFooter([]string{
		"Org Subtotal", "", "", "", u64(org.ResourceCount()),
		u64(sub.RUM), u64(sub.DataResource), u64(sub.NullResource), u64(sub.Total), "",
	})
	table.Render()
}

func summaryTable(w io.Writer, result *domain.RunResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Org ID", "Workspaces", "RUM", "Data RS", "Null RS", "Total", "Status"})
	for _, org := range result.Organizations {
		sub := org.Subtotal()
		status := "ok"
		if org.Unavailable {
			status = "unavailable"
		} else if failed := failedWorkspaces(org); failed > 0 {
			status = fmt.Sprintf("%d failed", failed)
		}
		table.Append([]string{
			org.ID, strconv.Itoa(len(org.Workspaces)),
			u64(sub.RUM), u64(sub.DataResource), u64(sub.NullResource), u64(sub.Total),
			status,
		})
	}
	table.Render()
}

func workspaceRow(ws domain.WorkspaceSummary) []string {
	return []string{
		ws.ID, ws.Name, ws.TerraformVersion, formatDate(ws), u64(ws.ResourceCount),
		u64(ws.Resources.RUM), u64(ws.Resources.DataResource), u64(ws.Resources.NullResource), u64(ws.Resources.Total),
		string(ws.Status),
	}
}

func failedWorkspaces(org domain.OrganizationSummary) int {
	n := 0
	for _, ws := range org.Workspaces {
		if ws.Failed() {
			n++
		}
	}
	return n
}

func formatDate(ws domain.WorkspaceSummary) string {
	if ws.LastUpdated.IsZero() {
		return ""
	}
	return ws.LastUpdated.UTC().Format(dateLayout)
}

func u64(n uint64) string {
	return strconv.FormatUint(n, 10)
}
