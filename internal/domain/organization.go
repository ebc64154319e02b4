package domain

import "time"

// OrganizationSummary holds the resolved workspaces of one organization, in
// API listing order
type OrganizationSummary struct {
	ID          string             `json:"id"`
	Workspaces  []WorkspaceSummary `json:"workspaces"`
	Unavailable bool               `json:"unavailable,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// UnavailableOrganization marks an organization whose workspaces could not be listed
func UnavailableOrganization(id string, err error) OrganizationSummary {
	org := OrganizationSummary{ID: id, Workspaces: []WorkspaceSummary{}, Unavailable: true}
	if err != nil {
		org.Error = err.Error()
	}
	return org
}

// Subtotal folds the resource counts of every workspace
func (o OrganizationSummary) Subtotal() ResourceCounts {
	counts := make([]ResourceCounts, 0, len(o.Workspaces))
	for _, ws := range o.Workspaces {
		counts = append(counts, ws.Resources)
	}
	return Sum(counts...)
}

// ResourceCount sums the resource counts reported by the API for each workspace
func (o OrganizationSummary) ResourceCount() uint64 {
	var n uint64
	for _, ws := range o.Workspaces {
		n += ws.ResourceCount
	}
	return n
}

// RunSource identifies what a run collected from
type RunSource string

const (
	RunSourceAPI       RunSource = "api"
	RunSourceStateFile RunSource = "state-file"
)

// RunResult is the outcome of a whole collection run
type RunResult struct {
	ID            string                `json:"id"`
	Source        RunSource             `json:"source"`
	StartedAt     time.Time             `json:"started_at"`
	FinishedAt    time.Time             `json:"finished_at"`
	Organizations []OrganizationSummary `json:"organizations"`
}

// GrandTotal folds the resource counts across every organization
func (r *RunResult) GrandTotal() ResourceCounts {
	counts := make([]ResourceCounts, 0, len(r.Organizations))
	for _, org := range r.Organizations {
		counts = append(counts, org.Subtotal())
	}
	return Sum(counts...)
}

// WorkspaceCount returns the number of workspaces across every organization
func (r *RunResult) WorkspaceCount() int {
	n := 0
	for _, org := range r.Organizations {
		n += len(org.Workspaces)
	}
	return n
}

// Failure describes a unit of work that could not be resolved
type Failure struct {
	Organization string `json:"organization"`
	Workspace    string `json:"workspace,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error"`
}

// Failures lists unavailable organizations and failed workspaces
func (r *RunResult) Failures() []Failure {
	var failures []Failure
	for _, org := range r.Organizations {
		if org.Unavailable {
			failures = append(failures, Failure{Organization: org.ID, Status: "unavailable", Error: org.Error})
			continue
		}
		for _, ws := range org.Workspaces {
			if ws.Failed() {
				failures = append(failures, Failure{
					Organization: org.ID,
					Workspace:    ws.ID,
					Status:       string(ws.Status),
					Error:        ws.Error,
				})
			}
		}
	}
	return failures
}
