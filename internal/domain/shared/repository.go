package shared

// Filter carries the pagination and ordering options common to every list
// query. Domain-specific filters embed it and add their own predicates.
//
// OrderBy is validated against a per-repository whitelist before it
// reaches SQL; an unknown column falls back to the repository default.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// Offset translates the page window into a SQL offset. Page numbers are
// 1-based; anything below 1 means the first page.
func (f Filter) Offset() int {
	if f.Page <= 1 || f.PageSize <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
