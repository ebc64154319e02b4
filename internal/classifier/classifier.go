// Package classifier sorts Terraform resources into RUM, data and null buckets.
package classifier

import (
	"strings"

	"github.com/kurihiro0119/rum-count/internal/domain"
)

const (
	nullResourceType = "null_resource"
	dataPrefix       = "data"
	// terraform_data is counted as data, not RUM
	terraformDataType = "terraform_data"
)

// Unit is one classifiable record: a live resource, a state-version entry
// with a pre-aggregated count, or a state-file entry.
type Unit struct {
	Type  string
	Mode  string // "data" for data sources in state files, empty otherwise
	Count uint64
}

// Classify returns the bucket for a provider or resource type
func Classify(resourceType string) domain.Category {
	switch {
	case resourceType == nullResourceType:
		return domain.CategoryNullResource
	case strings.HasPrefix(resourceType, dataPrefix), resourceType == terraformDataType:
		return domain.CategoryDataResource
	default:
		return domain.CategoryRUM
	}
}

// ClassifyUnit classifies u, treating data-mode state entries as data resources
func ClassifyUnit(u Unit) domain.Category {
	if u.Mode == "data" {
		return domain.CategoryDataResource
	}
	return Classify(u.Type)
}

// Count classifies every unit and returns the tally; each unit contributes
// its Count
func Count(units []Unit) domain.ResourceCounts {
	var counts domain.ResourceCounts
	for _, u := range units {
		counts = counts.With(ClassifyUnit(u), u.Count)
	}
	return counts
}
