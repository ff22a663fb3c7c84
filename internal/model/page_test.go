package model

import (
	"testing"

	"pgregory.net/rapid"
)

func intPtrEq(p *int, want int) bool {
	return p != nil && *p == want
}

func TestPaginate(t *testing.T) {
	for _, tc := range []struct {
		name     string
		n        int
		limit    int
		offset   int
		wantNext *int
		wantPrev *int
	}{
		{"full first page", 10, 10, 0, ptr(10), nil},
		{"short first page", 3, 10, 0, nil, nil},
		{"empty first page", 0, 10, 0, nil, nil},
		{"full middle page", 10, 10, 20, ptr(30), ptr(10)},
		{"short last page", 4, 10, 20, nil, ptr(10)},
		{"offset below limit", 5, 10, 3, nil, ptr(0)},
		{"limit one", 1, 1, 0, ptr(1), nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := Paginate(make([]int, tc.n), tc.limit, tc.offset)
			if p.Count != tc.n {
				t.Errorf("Count = %d, want %d", p.Count, tc.n)
			}
			if (p.NextOffset == nil) != (tc.wantNext == nil) || (tc.wantNext != nil && *p.NextOffset != *tc.wantNext) {
				t.Errorf("NextOffset = %v, want %v", deref(p.NextOffset), deref(tc.wantNext))
			}
			if (p.PrevOffset == nil) != (tc.wantPrev == nil) || (tc.wantPrev != nil && *p.PrevOffset != *tc.wantPrev) {
				t.Errorf("PrevOffset = %v, want %v", deref(p.PrevOffset), deref(tc.wantPrev))
			}
		})
	}
}

func TestPaginate_NilItems(t *testing.T) {
	p := Paginate[string](nil, 5, 0)
	if p.Items == nil {
		t.Error("Items should be non-nil for an empty page")
	}
}

// Stepping back with PrevOffset from an aligned offset and taking a full
// page lands NextOffset on the original offset.
func TestPaginate_PrevThenNext(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 100).Draw(t, "limit")
		page := rapid.IntRange(1, 1000).Draw(t, "page")
		offset := page * limit
		cur := Paginate(make([]int, rapid.IntRange(0, limit).Draw(t, "n")), limit, offset)
		if cur.PrevOffset == nil {
			t.Fatalf("PrevOffset is nil at offset %d", offset)
		}
		prev := Paginate(make([]int, limit), limit, *cur.PrevOffset)
		if !intPtrEq(prev.NextOffset, offset) {
			t.Fatalf("prev.NextOffset = %v, want %d", deref(prev.NextOffset), offset)
		}
	})
}

func TestPaginate_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 100).Draw(t, "limit")
		offset := rapid.IntRange(0, 10_000).Draw(t, "offset")
		n := rapid.IntRange(0, limit).Draw(t, "n")
		p := Paginate(make([]int, n), limit, offset)
		if (p.NextOffset != nil) != (n == limit) {
			t.Fatalf("NextOffset presence = %v with n=%d limit=%d", p.NextOffset != nil, n, limit)
		}
		if (p.PrevOffset != nil) != (offset > 0) {
			t.Fatalf("PrevOffset presence = %v with offset=%d", p.PrevOffset != nil, offset)
		}
		if p.PrevOffset != nil && *p.PrevOffset < 0 {
			t.Fatalf("PrevOffset = %d, want >= 0", *p.PrevOffset)
		}
	})
}

func ptr(i int) *int { return &i }

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
