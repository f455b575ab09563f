// Package pagination slices ranked result lists into fixed-size pages.
package pagination

// DefaultPageSize is the page size of search results
const DefaultPageSize = 15

// Page is one page of a result list
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	TotalPages int  `json:"total_pages"`
	Total      int  `json:"total"`
	HasNext    bool `json:"has_next"`
}

// TotalPages returns ceil(total/size), 0 for an empty list
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Paginate returns page (1-based) of items. Pages below 1 are treated as 1;
// pages past the end are empty.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	total := len(items)
	totalPages := TotalPages(total, size)

	// Pages past the end never reach the offset arithmetic, which would
	// overflow for very large page numbers.
	if page > totalPages {
		return Page[T]{Items: []T{}, Page: page, TotalPages: totalPages, Total: total}
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}

	pageItems := make([]T, end-start)
	copy(pageItems, items[start:end])

	return Page[T]{
		Items:      pageItems,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasNext:    page < totalPages,
	}
}
