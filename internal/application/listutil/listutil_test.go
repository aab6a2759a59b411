package listutil

import (
	"cmp"
	"net/url"
	"slices"
	"testing"
)

// TestParseSortParams_Valid verifies correct parsing of sort column and direction.
func TestParseSortParams_Valid(t *testing.T) {
	q := url.Values{"sort": {"name"}, "dir": {"desc"}}
	s := ParseSortParams(q, []string{"name", "role"})
	if s.Sort != "name" {
		t.Errorf("expected sort=name, got %s", s.Sort)
	}
	if s.Dir != "desc" {
		t.Errorf("expected dir=desc, got %s", s.Dir)
	}
}

// TestParseSortParams_DisallowedColumn verifies disallowed sort columns are rejected.
func TestParseSortParams_DisallowedColumn(t *testing.T) {
	q := url.Values{"sort": {"password"}}
	s := ParseSortParams(q, []string{"name", "role"})
	if s.Sort != "" {
		t.Errorf("expected empty sort for disallowed column, got %s", s.Sort)
	}
}

// TestParseSortParams_InvalidDir verifies invalid direction defaults to asc.
func TestParseSortParams_InvalidDir(t *testing.T) {
	q := url.Values{"sort": {"name"}, "dir": {"DROP TABLE"}}
	s := ParseSortParams(q, []string{"name"})
	if s.Dir != "asc" {
		t.Errorf("expected dir=asc for invalid dir, got %s", s.Dir)
	}
}

// TestParseListParams verifies search is trimmed and sort parsed.
func TestParseListParams(t *testing.T) {
	q := url.Values{"q": {"  plum "}, "sort": {"rate"}}
	p := ParseListParams(q, []string{"rate"})
	if p.Search != "plum" {
		t.Errorf("expected search=plum, got %q", p.Search)
	}
	if p.Sort != "rate" || p.Dir != "asc" {
		t.Errorf("expected rate asc, got %s %s", p.Sort, p.Dir)
	}
}

// TestMatches verifies case-insensitive substring search across fields.
func TestMatches(t *testing.T) {
	tests := []struct {
		query  string
		fields []string
		want   bool
	}{
		{"", []string{"Alice"}, true},
		{"ali", []string{"Alice", "Plumber"}, true},
		{"PLUMB", []string{"Bob", "Assistant Plumber"}, true},
		{"helper", []string{"Alice", "Plumber"}, false},
	}
	for _, tt := range tests {
		if got := Matches(tt.query, tt.fields...); got != tt.want {
			t.Errorf("Matches(%q, %v) = %v, want %v", tt.query, tt.fields, got, tt.want)
		}
	}
}

// TestSortStable verifies ordering, direction and that unknown columns keep input order.
func TestSortStable(t *testing.T) {
	comparators := map[string]func(a, b int) int{"n": cmp.Compare[int]}

	items := []int{3, 1, 2}
	SortStable(items, SortParams{Sort: "n", Dir: DirAsc}, comparators)
	if !slices.Equal(items, []int{1, 2, 3}) {
		t.Errorf("asc = %v", items)
	}

	SortStable(items, SortParams{Sort: "n", Dir: DirDesc}, comparators)
	if !slices.Equal(items, []int{3, 2, 1}) {
		t.Errorf("desc = %v", items)
	}

	items = []int{3, 1, 2}
	SortStable(items, SortParams{Sort: ""}, comparators)
	if !slices.Equal(items, []int{3, 1, 2}) {
		t.Errorf("unsorted = %v", items)
	}
}

// TestCompareFold verifies case-insensitive comparison.
func TestCompareFold(t *testing.T) {
	if CompareFold("alice", "Bob") >= 0 {
		t.Error("expected alice < Bob")
	}
	if CompareFold("ALICE", "alice") != 0 {
		t.Error("expected equal ignoring case")
	}
}
