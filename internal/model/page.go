package model

// Page is one offset/limit window of a list plus the offsets of its
// neighbours. NextOffset is set whenever the page is full, so it may point
// past the last item when the total is an exact multiple of Limit.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Count      int  `json:"count"`
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	NextOffset *int `json:"next_offset,omitempty"`
	PrevOffset *int `json:"prev_offset,omitempty"`
}

// Paginate wraps items that were already fetched with limit and offset.
// limit must be positive.
func Paginate[T any](items []T, limit, offset int) Page[T] {
	if items == nil {
		items = []T{}
	}
	p := Page[T]{
		Items:  items,
		Count:  len(items),
		Limit:  limit,
		Offset: offset,
	}
	if len(items) == limit {
		next := offset + limit
		p.NextOffset = &next
	}
	if offset > 0 {
		prev := max(offset-limit, 0)
		p.PrevOffset = &prev
	}
	return p
}
