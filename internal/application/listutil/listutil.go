package listutil

import (
	"cmp"
	"net/url"
	"slices"
	"strings"
)

// Sort directions.
const (
	DirAsc  = "asc"
	DirDesc = "desc"
)

// SortParams carries sorting parameters parsed from a request.
type SortParams struct {
	Sort string // column name, empty keeps insertion order
	Dir  string // "asc" or "desc"
}

// ListParams combines the board's list view parameters.
type ListParams struct {
	SortParams
	Search string // free-text search query
}

// ParseSortParams extracts sort and dir from URL query values.
// PRE: none
// POST: returns SortParams; Dir is always "asc" or "desc"
func ParseSortParams(q url.Values, allowedColumns []string) SortParams {
	sort := q.Get("sort")
	dir := q.Get("dir")

	if !slices.Contains(allowedColumns, sort) {
		sort = ""
	}
	if dir != DirAsc && dir != DirDesc {
		dir = DirAsc
	}
	return SortParams{Sort: sort, Dir: dir}
}

// ParseListParams parses sort and search parameters from URL query values.
func ParseListParams(q url.Values, allowedSortCols []string) ListParams {
	return ListParams{
		SortParams: ParseSortParams(q, allowedSortCols),
		Search:     strings.TrimSpace(q.Get("q")),
	}
}

// Matches reports whether any field contains query, ignoring case.
// An empty query matches everything.
func Matches(query string, fields ...string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// SortStable orders items by the comparator registered for p.Sort.
// Unknown or empty columns keep the input order; ties keep the input order.
// PRE: comparators return <0, 0, >0 like cmp.Compare
// POST: items is sorted in place
func SortStable[T any](items []T, p SortParams, comparators map[string]func(a, b T) int) {
	cmpFn, ok := comparators[p.Sort]
	if !ok {
		return
	}
	slices.SortStableFunc(items, func(a, b T) int {
		c := cmpFn(a, b)
		if p.Dir == DirDesc {
			return -c
		}
		return c
	})
}

// CompareFold compares strings case-insensitively.
func CompareFold(a, b string) int {
	return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
}
