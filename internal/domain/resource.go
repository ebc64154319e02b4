package domain

// Category represents the bucket a resource is counted in
type Category string

const (
	CategoryRUM          Category = "rum"
	CategoryDataResource Category = "data_resource"
	CategoryNullResource Category = "null_resource"
)

// ResourceCounts holds the per-category resource tally.
// Total always equals RUM + NullResource + DataResource; values are built
// with NewResourceCounts, Add or Sum and never mutated afterwards.
type ResourceCounts struct {
	RUM          uint64 `json:"rum"`
	NullResource uint64 `json:"null_resource"`
	DataResource uint64 `json:"data_resource"`
	Total        uint64 `json:"total"`
}

// NewResourceCounts creates a ResourceCounts with a consistent total
func NewResourceCounts(rum, nullResource, dataResource uint64) ResourceCounts {
	return ResourceCounts{
		RUM:          rum,
		NullResource: nullResource,
		DataResource: dataResource,
		Total:        rum + nullResource + dataResource,
	}
}

// Add returns the sum of c and o
func (c ResourceCounts) Add(o ResourceCounts) ResourceCounts {
	return NewResourceCounts(c.RUM+o.RUM, c.NullResource+o.NullResource, c.DataResource+o.DataResource)
}

// With returns c with n units added to the given category
func (c ResourceCounts) With(category Category, n uint64) ResourceCounts {
	switch category {
	case CategoryNullResource:
		return NewResourceCounts(c.RUM, c.NullResource+n, c.DataResource)
	case CategoryDataResource:
		return NewResourceCounts(c.RUM, c.NullResource, c.DataResource+n)
	default:
		return NewResourceCounts(c.RUM+n, c.NullResource, c.DataResource)
	}
}

// Sum folds a list of counts into one
func Sum(counts ...ResourceCounts) ResourceCounts {
	var total ResourceCounts
	for _, c := range counts {
		total = total.Add(c)
	}
	return total
}
