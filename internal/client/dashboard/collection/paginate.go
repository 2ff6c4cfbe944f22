package collection

// PageSizes are the page sizes a list view offers.
var PageSizes = []int{5, 10, 20, 50}

// DefaultPageSize is used when no valid size is configured.
const DefaultPageSize = 10

// windowSize is the number of page buttons shown at once.
const windowSize = 5

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// NextPageSize steps through PageSizes by delta, stopping at either end.
func NextPageSize(current, delta int) int {
	idx := 0
	for i, s := range PageSizes {
		if s == current {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(PageSizes) {
		idx = len(PageSizes) - 1
	}
	return PageSizes[idx]
}

// Page is one slice of a filtered collection.
type Page[T any] struct {
	Items      []T
	Page       int
	PerPage    int
	TotalPages int
	TotalCount int
}

// TotalPages is ceil(count/perPage), never less than one.
func TotalPages(count, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	pages := (count + perPage - 1) / perPage
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate slices items for the 1-based page. It does not clamp: a page past
// the end yields no items.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	p := Page[T]{
		Page:       page,
		PerPage:    perPage,
		TotalCount: len(items),
		TotalPages: TotalPages(len(items), perPage),
	}

	start := (page - 1) * perPage
	if page < 1 || start >= len(items) {
		p.Items = []T{}
		return p
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	p.Items = items[start:end]
	return p
}

// Window returns the page numbers to show around current, at most five,
// and whether a trailing ellipsis should precede a jump to the last page.
func Window(current, total int) (pages []int, ellipsis bool) {
	if total < 1 {
		total = 1
	}

	var start int
	switch {
	case total <= windowSize:
		start = 1
	case current <= 3:
		start = 1
	case current >= total-2:
		start = total - windowSize + 1
	default:
		start = current - 2
	}

	end := start + windowSize - 1
	if end > total {
		end = total
	}
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}

	ellipsis = end < total && current < total-2
	return pages, ellipsis
}
